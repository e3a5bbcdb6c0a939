// ABOUTME: Glamour markdown rendering for deal and contact details
// ABOUTME: Caches one renderer per style and wrap width
package tui

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"

	"github.com/harperreed/crmdesk/models"
	"github.com/harperreed/crmdesk/views"
)

// Glamour standard style names.
const (
	DarkStyle  = "dark"
	LightStyle = "light"
	PlainStyle = "notty"
)

var (
	mdRendererMu sync.Mutex
	// Fixed styles only. Auto style detection queries the terminal and can
	// block inside the alt screen.
	mdRenderers = map[string]*glamour.TermRenderer{}
)

// RenderMarkdown renders md wrapped at width. Rendering failures fall back
// to the raw text.
func RenderMarkdown(md string, width int, style string) string {
	md = strings.TrimSpace(md)
	if md == "" {
		return ""
	}
	if width < 10 {
		width = 10
	}

	key := style + ":" + strconv.Itoa(width)
	mdRendererMu.Lock()
	r := mdRenderers[key]
	mdRendererMu.Unlock()

	if r == nil {
		rr, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(style),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return md
		}
		mdRendererMu.Lock()
		if existing := mdRenderers[key]; existing != nil {
			r = existing
		} else {
			mdRenderers[key] = rr
			r = rr
		}
		mdRendererMu.Unlock()
	}

	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n")
}

// DealMarkdown describes a deal as a markdown document.
func DealMarkdown(d models.Deal) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("# %s\n\n", d.Title))
	b.WriteString(fmt.Sprintf("- **Stage:** %s\n", d.Stage.Label()))
	b.WriteString(fmt.Sprintf("- **Value:** %s\n", views.FormatCurrency(d.Value)))
	if name := d.ContactName(); name != "" {
		b.WriteString(fmt.Sprintf("- **Contact:** %s\n", name))
	}
	if d.Company != "" {
		b.WriteString(fmt.Sprintf("- **Company:** %s\n", d.Company))
	}
	if d.ExpectedCloseDate.Present() {
		b.WriteString(fmt.Sprintf("- **Expected close:** %s\n", d.ExpectedCloseDate.String()))
	}
	if d.Description != "" {
		b.WriteString("\n" + d.Description + "\n")
	}
	return b.String()
}

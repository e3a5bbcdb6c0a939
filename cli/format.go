// ABOUTME: Small formatting helpers for tabular CLI output
// ABOUTME: Placeholders for empty cells and compact timestamps
package cli

import (
	"fmt"
	"io"

	"github.com/harperreed/crmdesk/models"
)

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func printField(w io.Writer, label, value string) {
	if value != "" {
		_, _ = fmt.Fprintf(w, "  %s: %s\n", label, value)
	}
}

func formatWhen(t models.Timestamp) string {
	if !t.Present() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func formatDate(d models.Date) string {
	if !d.Present() {
		return "-"
	}
	return d.String()
}

// ABOUTME: Graphviz rendering of the deal pipeline
// ABOUTME: Stage nodes chained in board order with each deal hanging off its stage
package viz

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"

	"github.com/harperreed/crmdesk/models"
	"github.com/harperreed/crmdesk/views"
)

// Format selects the graph output.
type Format string

const (
	FormatDOT Format = "dot"
	FormatSVG Format = "svg"
)

// ParseFormat accepts "dot" or "svg".
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatDOT, "":
		return FormatDOT, nil
	case FormatSVG:
		return FormatSVG, nil
	}
	return "", fmt.Errorf("unknown format %q (valid: dot, svg)", s)
}

var stageColors = map[models.Stage]string{
	models.StageLead:        "lightgrey",
	models.StageQualified:   "lightblue",
	models.StageProposal:    "lightyellow",
	models.StageNegotiation: "orange",
	models.StageClosedWon:   "lightgreen",
	models.StageClosedLost:  "pink",
}

// RenderPipeline draws the pipeline as DOT or SVG.
func RenderPipeline(ctx context.Context, pipeline views.Pipeline, format Format) (string, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create graphviz: %w", err)
	}
	defer func() {
		if err := gv.Close(); err != nil {
			log.Warn("closing graphviz", "err", err)
		}
	}()

	graph, err := gv.Graph()
	if err != nil {
		return "", fmt.Errorf("failed to create graph: %w", err)
	}
	defer func() {
		if err := graph.Close(); err != nil {
			log.Warn("closing graph", "err", err)
		}
	}()

	graph.SetLabel(fmt.Sprintf("Deal Pipeline (%d deals, %s)", pipeline.Total(), views.FormatCurrency(pipeline.Value())))
	graph.SetRankDir(cgraph.LRRank)

	var prev *cgraph.Node
	for _, bucket := range pipeline {
		stageNode, err := graph.CreateNodeByName("stage_" + string(bucket.Stage))
		if err != nil {
			return "", fmt.Errorf("failed to create stage node: %w", err)
		}
		stageNode.SetLabel(fmt.Sprintf("%s\n%d · %s", bucket.Stage.Label(), len(bucket.Deals), views.FormatCurrency(bucket.Value())))
		stageNode.SetShape("box")
		stageNode.SetStyle("filled")
		stageNode.SetFillColor(stageColors[bucket.Stage])

		if prev != nil {
			edge, err := graph.CreateEdgeByName("next_"+string(bucket.Stage), prev, stageNode)
			if err != nil {
				return "", fmt.Errorf("failed to create stage edge: %w", err)
			}
			edge.SetStyle("bold")
		}
		prev = stageNode

		for _, deal := range bucket.Deals {
			node, err := graph.CreateNodeByName(fmt.Sprintf("deal_%d", deal.ID))
			if err != nil {
				return "", fmt.Errorf("failed to create deal node: %w", err)
			}
			label := fmt.Sprintf("%s\n%s", deal.Title, views.FormatCurrency(deal.Value))
			if name := deal.ContactName(); name != "" {
				label += "\n" + name
			}
			node.SetLabel(label)
			node.SetShape("diamond")
			node.SetStyle("filled")
			node.SetFillColor("white")

			edge, err := graph.CreateEdgeByName(fmt.Sprintf("in_%d", deal.ID), stageNode, node)
			if err != nil {
				return "", fmt.Errorf("failed to create deal edge: %w", err)
			}
			edge.SetStyle("dotted")
		}
	}

	gvFormat := graphviz.XDOT
	if format == FormatSVG {
		gvFormat = graphviz.SVG
	}

	var buf bytes.Buffer
	if err := gv.Render(ctx, graph, gvFormat, &buf); err != nil {
		return "", fmt.Errorf("failed to render graph: %w", err)
	}
	return buf.String(), nil
}

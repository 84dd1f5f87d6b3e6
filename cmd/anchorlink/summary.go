package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/dd0wney/anchorlink/pkg/integrity"
	"github.com/dd0wney/anchorlink/pkg/mesh"
	"github.com/dd0wney/anchorlink/pkg/pipeline"
)

var (
	colorAccent  = lipgloss.Color("#20B9B4")
	colorBorder  = lipgloss.Color("#16858E")
	colorWarning = lipgloss.Color("#F4D03F")
	colorError   = lipgloss.Color("#E74C3C")

	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	labelStyle  = lipgloss.NewStyle().Width(22)
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	okStyle     = lipgloss.NewStyle().Foreground(colorAccent)
	warnStyle   = lipgloss.NewStyle().Foreground(colorWarning)
	errStyle    = lipgloss.NewStyle().Foreground(colorError).Bold(true)
)

func line(label string, value any) string {
	return labelStyle.Render(label) + fmt.Sprint(value)
}

func passTable(passes []*integrity.PassReport) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorBorder)).
		Headers("pass", "attempted", "emitted", "skipped", "fallbacks", "escalated", "max radius").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	for _, p := range passes {
		t.Row(
			p.Pass,
			strconv.Itoa(p.Attempted),
			strconv.Itoa(p.Emitted),
			strconv.Itoa(p.FailingSkips()),
			strconv.Itoa(p.Fallbacks),
			strconv.Itoa(p.Escalated),
			strconv.FormatFloat(p.MaxRadiusUsed, 'g', 6, 64),
		)
	}
	return t.Render()
}

func skipRate(rate, limit float64) string {
	s := fmt.Sprintf("%.2f%% (limit %.2f%%)", rate*100, limit*100)
	switch {
	case rate > limit:
		return errStyle.Render(s)
	case rate > 0:
		return warnStyle.Render(s)
	default:
		return okStyle.Render(s)
	}
}

func renderSummary(result *pipeline.Result, artifacts []pipeline.Artifact, limit float64) string {
	r := result.Report
	lines := []string{
		titleStyle.Render("anchorlink run"),
		line("fingerprint", result.Document.Fingerprint),
		line("anchors", r.AnchorsFound),
		line("classified", r.EndpointsClassified),
		line("invalid components", len(r.InvalidComponents)),
		line("rejected elements", len(r.RejectedElements)),
		line("pruned constraints", r.Violations),
		line("skip rate", skipRate(r.SkipRate, limit)),
		passTable(r.Passes),
	}
	for _, a := range artifacts {
		lines = append(lines, line(a.Name, a.Location))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderCheck(model *mesh.Model, r *integrity.Report) string {
	lines := []string{
		titleStyle.Render("anchorlink check"),
		line("nodes", len(model.Nodes)),
		line("elements", len(model.Elements)),
		line("wall nodes", len(model.Wall)),
		line("soil nodes", len(model.Soil)),
		line("anchors", r.AnchorsFound),
		line("classified", r.EndpointsClassified),
	}
	for _, c := range r.InvalidComponents {
		lines = append(lines, warnStyle.Render(fmt.Sprintf("component %d: %s %v", c.ID, c.Fault, c.Nodes)))
	}
	for _, e := range r.RejectedElements {
		lines = append(lines, warnStyle.Render(fmt.Sprintf("element %d: %s", e.ID, e.Reason)))
	}
	if len(model.Wall) == 0 || len(model.Soil) == 0 {
		lines = append(lines, errStyle.Render("a master node set is empty; run will fail"))
	}
	return strings.Join(lines, "\n")
}

// ABOUTME: Terminal rendering of plugins and request logs.
// ABOUTME: Styles tables with lipgloss and lipgloss/table.

package main

import (
	"fmt"
	"strings"

	"github.com/2389/pluginadmin/internal/prompt"
	"github.com/2389/pluginadmin/internal/record"
	"github.com/2389/pluginadmin/internal/store"
	"github.com/2389/pluginadmin/internal/wire"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(dimStyle).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
}

func renderPlugins(plugins []wire.Plugin) string {
	if len(plugins) == 0 {
		return dimStyle.Render("No plugins yet. Create one with 'pluginadmin new'.")
	}

	t := newTable("NAME", "URL", "PARAMETERS")
	for _, p := range plugins {
		summaries := parameterSummaries(p.Parameters)
		if len(summaries) == 0 {
			summaries = []string{dimStyle.Render("No parameters")}
		}
		t.Row(truncate(p.Name, 32), truncate(p.URL, 48), strings.Join(summaries, "\n"))
	}
	return t.String()
}

func renderPlugin(p wire.Plugin) string {
	title := headerStyle.Render(p.Name)
	lines := []string{title, "URL: " + p.URL}
	if p.ID != nil {
		lines = append(lines, dimStyle.Render("ID: "+p.ID.String()))
	}
	summaries := parameterSummaries(p.Parameters)
	if len(summaries) == 0 {
		lines = append(lines, dimStyle.Render("No parameters"))
	}
	for i, s := range summaries {
		lines = append(lines, fmt.Sprintf("  %d. %s", i+1, s))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// parameterSummaries describes each parameter, keeping the raw tags of
// types this tool does not understand.
func parameterSummaries(params []wire.Parameter) []string {
	out := make([]string, 0, len(params))
	for _, wp := range params {
		p, err := record.ParameterFromWire(wp)
		if err != nil {
			out = append(out, fmt.Sprintf("%s: %s", wp.Key, wp.Type))
			continue
		}
		out = append(out, prompt.Summary(p))
	}
	return out
}

func renderLogs(logs []*store.RequestLog, stats *store.RequestLogStats) string {
	var lines []string
	if stats != nil {
		lines = append(lines, dimStyle.Render(fmt.Sprintf("Requests: %d | Errors: %d | Avg: %dms | Plugins: %d",
			stats.TotalRequests, stats.ErrorRequests, stats.AvgDurationMs, stats.Plugins)))
	}
	if len(logs) == 0 {
		return lipgloss.JoinVertical(lipgloss.Left, append(lines, dimStyle.Render("No request logs"))...)
	}

	t := newTable("TIME", "METHOD", "STATUS", "MS", "PLUGIN", "PATH", "ERROR")
	for _, l := range logs {
		status := okStyle.Render(fmt.Sprint(l.StatusCode))
		if l.StatusCode >= 400 {
			status = errorStyle.Render(fmt.Sprint(l.StatusCode))
		}
		t.Row(
			l.Timestamp.Format("2006-01-02 15:04:05"),
			l.Method,
			status,
			fmt.Sprint(l.DurationMs),
			truncate(l.PluginName, 24),
			l.Path,
			errorStyle.Render(l.Error),
		)
	}
	return lipgloss.JoinVertical(lipgloss.Left, append(lines, t.String())...)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return strings.TrimSpace(string(r[:n-1])) + "…"
}

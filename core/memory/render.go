package memory

import (
	"fmt"
	"strings"
)

const (
	renderStatementCount = 5
	renderHighlightCount = 3
)

// RenderContext flattens structured memory into a deterministic
// prompt-ready text block. Pure and synchronous: no external calls.
// Sections with no content are omitted.
func RenderContext(mem *AgentMemory) string {
	if mem == nil {
		return ""
	}

	var sections []string

	if mem.NarrativeSummary != "" {
		sections = append(sections, mem.NarrativeSummary)
	}
	if mem.EvolutionNotes != "" {
		sections = append(sections, "How my view has evolved: "+mem.EvolutionNotes)
	}

	if s := renderStatements(mem.FocusGroupStatements); s != "" {
		sections = append(sections, s)
	}
	if s := renderHighlights(mem.ChatHighlights); s != "" {
		sections = append(sections, s)
	}
	if s := renderDeltas(mem.ScoreDeltas); s != "" {
		sections = append(sections, s)
	}

	return strings.Join(sections, "\n\n")
}

// renderStatements lists the most recent focus-group statements, newest last.
func renderStatements(statements []Statement) string {
	if len(statements) == 0 {
		return ""
	}
	recent := statements
	if len(recent) > renderStatementCount {
		recent = recent[len(recent)-renderStatementCount:]
	}

	var sb strings.Builder
	sb.WriteString("Recent discussion positions:\n")
	for _, s := range recent {
		fmt.Fprintf(&sb, "- [%s] %q\n", s.Topic, s.Content)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// renderHighlights lists the most recent chat highlights, newest last.
func renderHighlights(highlights []Highlight) string {
	if len(highlights) == 0 {
		return ""
	}
	recent := highlights
	if len(recent) > renderHighlightCount {
		recent = recent[len(recent)-renderHighlightCount:]
	}

	var sb strings.Builder
	sb.WriteString("Recent conversation highlights:\n")
	for _, h := range recent {
		fmt.Fprintf(&sb, "- [%s] %q\n", h.Topic, h.Content)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// renderDeltas lists every score change versus the prior revision.
func renderDeltas(deltas []ScoreDelta) string {
	if len(deltas) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Score changes since the prior draft:\n")
	for _, d := range deltas {
		fmt.Fprintf(&sb, "- %s: %s -> %s (%s)\n", d.Dimension, d.PreviousLabel, d.CurrentLabel, d.Reason)
	}
	return strings.TrimRight(sb.String(), "\n")
}

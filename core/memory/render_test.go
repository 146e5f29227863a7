package memory

import (
	"fmt"
	"strings"
	"testing"
)

func TestRenderContextEmpty(t *testing.T) {
	t.Parallel()

	if got := RenderContext(nil); got != "" {
		t.Fatalf("nil memory should render empty, got %q", got)
	}
	if got := RenderContext(NewAgentMemory("r", "s", "v")); got != "" {
		t.Fatalf("fresh memory should render empty, got %q", got)
	}
}

func TestRenderContextSectionsAndOrder(t *testing.T) {
	t.Parallel()

	mem := NewAgentMemory("reader-1", "script-1", "rev-2")
	mem.NarrativeSummary = "I remain cautiously optimistic about this script."
	mem.EvolutionNotes = "The rewrite won me over on structure."
	mem.FocusGroupStatements = []Statement{
		{Content: "the midpoint twist works", Topic: "structure"},
	}
	mem.ChatHighlights = []Highlight{
		{Content: "asked about the ending", Topic: "structure", Importance: ImportanceHigh},
	}
	mem.ScoreDeltas = []ScoreDelta{
		{Dimension: "structure", PreviousLabel: "weak", CurrentLabel: "solid", Reason: "tighter second act"},
	}

	got := RenderContext(mem)

	wantParts := []string{
		"I remain cautiously optimistic about this script.",
		"How my view has evolved: The rewrite won me over on structure.",
		"Recent discussion positions:\n- [structure] \"the midpoint twist works\"",
		"Recent conversation highlights:\n- [structure] \"asked about the ending\"",
		"Score changes since the prior draft:\n- structure: weak -> solid (tighter second act)",
	}
	last := -1
	for _, part := range wantParts {
		idx := strings.Index(got, part)
		if idx < 0 {
			t.Fatalf("rendered context missing %q:\n%s", part, got)
		}
		if idx < last {
			t.Fatalf("section %q out of order:\n%s", part, got)
		}
		last = idx
	}
}

func TestRenderContextCapsRecentItems(t *testing.T) {
	t.Parallel()

	mem := NewAgentMemory("reader-1", "script-1", "rev-1")
	for i := 0; i < 8; i++ {
		mem.FocusGroupStatements = append(mem.FocusGroupStatements, Statement{
			Content: fmt.Sprintf("statement %d", i), Topic: "structure",
		})
		mem.ChatHighlights = append(mem.ChatHighlights, Highlight{
			Content: fmt.Sprintf("highlight %d", i), Topic: "structure",
		})
	}

	got := RenderContext(mem)

	if strings.Count(got, "statement ") != renderStatementCount {
		t.Errorf("expected %d statements rendered:\n%s", renderStatementCount, got)
	}
	if strings.Count(got, "highlight ") != renderHighlightCount {
		t.Errorf("expected %d highlights rendered:\n%s", renderHighlightCount, got)
	}
	if !strings.Contains(got, `"statement 7"`) || strings.Contains(got, `"statement 2"`) {
		t.Errorf("expected the newest statements to win:\n%s", got)
	}
}

func TestRenderContextSkipsEmptySections(t *testing.T) {
	t.Parallel()

	mem := NewAgentMemory("reader-1", "script-1", "rev-1")
	mem.NarrativeSummary = "Only the narrative exists."

	got := RenderContext(mem)
	if got != "Only the narrative exists." {
		t.Fatalf("expected only the narrative, got %q", got)
	}
	if strings.Contains(got, "Recent") || strings.Contains(got, "Score changes") {
		t.Fatalf("empty sections must be omitted:\n%s", got)
	}
}

func TestRenderContextIsDeterministic(t *testing.T) {
	t.Parallel()

	mem := NewAgentMemory("reader-1", "script-1", "rev-1")
	mem.NarrativeSummary = "Stable view."
	mem.FocusGroupStatements = []Statement{
		{Content: "a", Topic: "x"},
		{Content: "b", Topic: "y"},
	}

	first := RenderContext(mem)
	for i := 0; i < 5; i++ {
		if got := RenderContext(mem); got != first {
			t.Fatalf("render differed across calls:\n%s\nvs\n%s", first, got)
		}
	}
}

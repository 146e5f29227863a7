package memory

import (
	"errors"
	"testing"
	"time"
)

func TestParseItems(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		text    string
		want    int
		wantErr error
	}{
		{
			name: "clean array",
			text: `[{"content": "the premise is fresh", "topic": "premise", "importance": "high"}]`,
			want: 1,
		},
		{
			name: "array wrapped in prose",
			text: "Here are the facts I found:\n" +
				`[{"content": "a", "topic": "x", "importance": "low"}, {"content": "b", "topic": "y", "importance": "medium"}]` +
				"\nLet me know if you need more.",
			want: 2,
		},
		{
			name: "brackets inside string values",
			text: `[{"content": "the scene at [EXT. DOCKS] works", "topic": "structure", "importance": "medium"}]`,
			want: 1,
		},
		{
			name: "blank content skipped",
			text: `[{"content": "  ", "topic": "x"}, {"content": "kept", "topic": "y"}]`,
			want: 1,
		},
		{
			name:    "no array at all",
			text:    "I could not find any facts worth extracting.",
			wantErr: ErrNoJSONPayload,
		},
		{
			name:    "unterminated array",
			text:    `[{"content": "a"`,
			wantErr: ErrNoJSONPayload,
		},
		{
			name:    "array of wrong shape",
			text:    `[1, 2, 3]`,
			wantErr: ErrBadItemSchema,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			items, err := parseItems(tc.text, EventDiscussion, now)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(items) != tc.want {
				t.Fatalf("expected %d items, got %d", tc.want, len(items))
			}
			for _, item := range items {
				if item.ID == "" {
					t.Error("item missing generated ID")
				}
				if item.SourceType != EventDiscussion {
					t.Errorf("expected discussion source, got %v", item.SourceType)
				}
				if !item.Timestamp.Equal(now) {
					t.Errorf("expected timestamp %v, got %v", now, item.Timestamp)
				}
			}
		})
	}
}

func TestParseItemsNormalization(t *testing.T) {
	t.Parallel()

	now := time.Now()
	text := `[
		{"content": "untagged fact"},
		{"content": "shouted topic", "topic": "  DIALOGUE  ", "importance": "HIGH"},
		{"content": "odd grade", "topic": "pacing", "importance": "critical"}
	]`

	items, err := parseItems(text, EventDirectChat, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}

	if items[0].Topic != "general" {
		t.Errorf("missing topic should default to general, got %q", items[0].Topic)
	}
	if items[0].Importance != ImportanceMedium {
		t.Errorf("missing importance should default to medium, got %q", items[0].Importance)
	}
	if items[1].Topic != "dialogue" {
		t.Errorf("topic should be lowercased and trimmed, got %q", items[1].Topic)
	}
	if items[1].Importance != ImportanceHigh {
		t.Errorf("importance should be case-insensitive, got %q", items[1].Importance)
	}
	if items[2].Importance != ImportanceMedium {
		t.Errorf("unknown importance should default to medium, got %q", items[2].Importance)
	}
}

func TestFirstJSONObject(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		text    string
		want    string
		wantErr bool
	}{
		{
			name: "object wrapped in prose",
			text: `Sure. {"narrativeSummary": "ok"} Done.`,
			want: `{"narrativeSummary": "ok"}`,
		},
		{
			name: "nested object",
			text: `{"a": {"b": 1}}`,
			want: `{"a": {"b": 1}}`,
		},
		{
			name: "braces inside strings",
			text: `{"note": "use {curly} sparingly"}`,
			want: `{"note": "use {curly} sparingly"}`,
		},
		{
			name:    "no object",
			text:    "nothing here",
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := firstJSONObject(tc.text)
			if tc.wantErr {
				if !errors.Is(err, ErrNoJSONPayload) {
					t.Fatalf("expected ErrNoJSONPayload, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

package memory

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Extraction parse errors. The pipeline applies the documented fallback
// (empty item list) uniformly at the call site.
var (
	// ErrNoJSONPayload means the model response contained no bracketed array.
	ErrNoJSONPayload = errors.New("no JSON array in model response")
	// ErrBadItemSchema means the array did not match the item schema.
	ErrBadItemSchema = errors.New("extracted items do not match schema")
)

const extractSystemInstruction = "You extract atomic facts from script-coverage events. " +
	"Respond with a JSON array only: " +
	`[{"content": "...", "topic": "...", "importance": "high|medium|low"}]. ` +
	"Each fact must stand alone. Topics are short noun phrases like " +
	`"structure" or "dialogue".`

// rawItem is the wire schema for one extracted fact.
type rawItem struct {
	Content    string `json:"content"`
	Topic      string `json:"topic"`
	Importance string `json:"importance"`
}

// parseItems locates the first bracketed array in free-form model output
// and validates it against the item schema. Tolerates surrounding prose.
func parseItems(text string, sourceType EventType, now time.Time) ([]Item, error) {
	payload, err := firstJSONArray(text)
	if err != nil {
		return nil, err
	}

	var raw []rawItem
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadItemSchema, err)
	}

	items := make([]Item, 0, len(raw))
	for _, r := range raw {
		content := strings.TrimSpace(r.Content)
		if content == "" {
			continue
		}
		items = append(items, Item{
			ID:         newID(),
			Content:    content,
			Topic:      normalizeTopic(r.Topic),
			SourceType: sourceType,
			Importance: normalizeImportance(r.Importance),
			Timestamp:  now,
		})
	}
	return items, nil
}

// firstJSONArray scans for the first balanced bracketed array, skipping
// brackets inside JSON strings.
func firstJSONArray(text string) (string, error) {
	start := strings.IndexByte(text, '[')
	if start < 0 {
		return "", ErrNoJSONPayload
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}
	return "", ErrNoJSONPayload
}

func normalizeTopic(topic string) string {
	topic = strings.ToLower(strings.TrimSpace(topic))
	if topic == "" {
		return "general"
	}
	return topic
}

func normalizeImportance(importance string) Importance {
	switch strings.ToLower(strings.TrimSpace(importance)) {
	case "high":
		return ImportanceHigh
	case "low":
		return ImportanceLow
	default:
		return ImportanceMedium
	}
}

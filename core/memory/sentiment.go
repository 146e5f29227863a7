package memory

import "strings"

// Sentiment lexicons for focus-group statements. Matching is whole-word
// over lowercased text; ties resolve to neutral.
var positiveLexicon = []string{
	"love", "loved", "great", "excellent", "strong", "works", "compelling",
	"fresh", "sharp", "engaging", "effective", "brilliant", "crisp",
	"memorable", "moving", "tight", "vivid", "earned", "believable",
}

var negativeLexicon = []string{
	"drags", "weak", "confusing", "flat", "cliche", "boring", "problem",
	"unconvincing", "muddled", "forced", "thin", "slow", "stale",
	"derivative", "overwrought", "implausible", "tedious", "unearned",
}

// inferSentiment classifies a statement by lexicon hits.
func inferSentiment(text string) Sentiment {
	words := tokenize(text)

	positive := 0
	negative := 0
	for _, w := range words {
		if lexiconHas(positiveLexicon, w) {
			positive++
		}
		if lexiconHas(negativeLexicon, w) {
			negative++
		}
	}

	switch {
	case positive > negative:
		return SentimentPositive
	case negative > positive:
		return SentimentNegative
	default:
		return SentimentNeutral
	}
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
}

func lexiconHas(lexicon []string, word string) bool {
	for _, entry := range lexicon {
		if entry == word {
			return true
		}
	}
	return false
}

package moderation

import (
	"fmt"
	"strings"
	"unicode"
)

// Classifier decides whether a message should be flagged for review.
// Flagged messages are stored and answered normally; the flag only
// marks them for later inspection.
type Classifier interface {
	Classify(content string) (flagged bool, reason string)
}

var defaultKeywords = []string{"inappropriate", "spam", "hack", "cheat", "illegal"}

// Heuristic is a rule-based classifier: a keyword list, a shouting
// check and a repetition check.
type Heuristic struct {
	keywords []string
}

func NewHeuristic(keywords []string) *Heuristic {
	if len(keywords) == 0 {
		keywords = defaultKeywords
	}
	return &Heuristic{keywords: keywords}
}

func (h *Heuristic) Classify(content string) (bool, string) {
	lower := strings.ToLower(content)
	for _, kw := range h.keywords {
		if strings.Contains(lower, kw) {
			return true, fmt.Sprintf("Contains flagged keyword: %s", kw)
		}
	}

	if len(content) > 10 && capsRatio(content) > 0.7 {
		return true, "Excessive use of capital letters"
	}

	if word, n := mostRepeatedWord(lower); n > 5 {
		return true, fmt.Sprintf("Excessive repetition of word: %s", word)
	}

	return false, ""
}

// capsRatio is the share of letters that are upper case. Non-letters
// are ignored so punctuation-heavy messages are not penalized.
func capsRatio(s string) float64 {
	var letters, upper int
	for _, r := range s {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if unicode.IsUpper(r) {
			upper++
		}
	}
	if letters == 0 {
		return 0
	}
	return float64(upper) / float64(letters)
}

func mostRepeatedWord(lower string) (string, int) {
	counts := make(map[string]int)
	best := ""
	bestN := 0
	for _, w := range strings.Fields(lower) {
		w = strings.TrimFunc(w, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsNumber(r) })
		if w == "" {
			continue
		}
		counts[w]++
		if counts[w] > bestN {
			best, bestN = w, counts[w]
		}
	}
	return best, bestN
}

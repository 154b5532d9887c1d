package moderation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify_Keywords(t *testing.T) {
	h := NewHeuristic(nil)

	flagged, reason := h.Classify("can you help me hack the grading system")
	assert.True(t, flagged)
	assert.Equal(t, "Contains flagged keyword: hack", reason)

	flagged, reason = h.Classify("Is this considered CHEATING?")
	assert.True(t, flagged)
	assert.Equal(t, "Contains flagged keyword: cheat", reason)
}

func TestClassify_ExcessiveCaps(t *testing.T) {
	h := NewHeuristic(nil)

	flagged, reason := h.Classify("WHY IS THIS NOT WORKING")
	assert.True(t, flagged)
	assert.Equal(t, "Excessive use of capital letters", reason)

	// short shouting is tolerated
	flagged, _ = h.Classify("HELP")
	assert.False(t, flagged)

	flagged, _ = h.Classify("What does RAM stand for in this context?")
	assert.False(t, flagged)
}

func TestClassify_Repetition(t *testing.T) {
	h := NewHeuristic(nil)

	flagged, reason := h.Classify(strings.Repeat("please ", 6) + "answer me")
	assert.True(t, flagged)
	assert.Equal(t, "Excessive repetition of word: please", reason)

	flagged, _ = h.Classify(strings.Repeat("please ", 5) + "answer me")
	assert.False(t, flagged)
}

func TestClassify_CleanMessage(t *testing.T) {
	h := NewHeuristic(nil)

	flagged, reason := h.Classify("When are office hours this week?")
	assert.False(t, flagged)
	assert.Empty(t, reason)
}

func TestClassify_CustomKeywords(t *testing.T) {
	h := NewHeuristic([]string{"solution manual"})

	flagged, _ := h.Classify("where can I download the solution manual")
	assert.True(t, flagged)

	flagged, _ = h.Classify("can you help me hack this")
	assert.False(t, flagged)
}

package chunker

import (
	"regexp"
	"strings"
)

// Options bound the size of emitted chunks. MinChars filters out noise
// (headers, footers, page numbers); set it to 0 to keep everything.
type Options struct {
	MaxChars     int
	OverlapChars int
	MinChars     int
}

func DefaultOptions() Options {
	return Options{MaxChars: 800, OverlapChars: 100, MinChars: 50}
}

// sentenceEnd marks a sentence boundary: terminal punctuation followed by
// whitespace. Go regexp has no lookbehind, so the split keeps the
// punctuation by cutting just after it.
var sentenceEnd = regexp.MustCompile(`[.!?]\s+`)

// Split breaks document text into bounded, boundary-aware chunks.
//
// Paragraphs are accumulated into a running buffer until appending the next
// one would exceed MaxChars; the buffer is then emitted and the next buffer
// is seeded with the trailing words of the emitted chunk for cross-chunk
// continuity. Chunks still longer than MaxChars are re-split on sentence
// boundaries with no overlap. A single oversized paragraph with no sentence
// boundary is emitted whole rather than dropped.
func Split(text string, opts Options) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if opts.MaxChars <= 0 {
		opts.MaxChars = DefaultOptions().MaxChars
	}

	chunks := splitParagraphs(text, opts.MaxChars, opts.OverlapChars)

	var final []string
	for _, chunk := range chunks {
		if len(chunk) <= opts.MaxChars {
			final = append(final, chunk)
			continue
		}
		final = append(final, splitSentences(chunk, opts.MaxChars)...)
	}

	if opts.MinChars <= 0 {
		return final
	}
	kept := final[:0]
	for _, chunk := range final {
		if len(chunk) >= opts.MinChars {
			kept = append(kept, chunk)
		}
	}
	return kept
}

func splitParagraphs(text string, maxChars, overlapChars int) []string {
	paragraphs := strings.Split(text, "\n\n")
	var chunks []string
	var current string

	for _, paragraph := range paragraphs {
		if len(current)+len(paragraph) > maxChars && current != "" {
			chunks = append(chunks, strings.TrimSpace(current))
			if overlapChars > 0 {
				current = overlapTail(current, overlapChars) + " " + paragraph
			} else {
				current = paragraph
			}
			continue
		}
		if current != "" {
			current += "\n\n" + paragraph
		} else {
			current = paragraph
		}
	}
	if strings.TrimSpace(current) != "" {
		chunks = append(chunks, strings.TrimSpace(current))
	}
	return chunks
}

// overlapTail returns the trailing overlapChars worth of words from the
// just-emitted chunk, approximated as one word per ten overlap characters.
func overlapTail(chunk string, overlapChars int) string {
	words := strings.Fields(chunk)
	n := overlapChars / 10
	if len(words) <= n {
		return ""
	}
	return strings.Join(words[len(words)-n:], " ")
}

func splitSentences(chunk string, maxChars int) []string {
	sentences := sentenceSplit(chunk)
	var chunks []string
	var current string

	for _, sentence := range sentences {
		if len(current)+len(sentence) > maxChars && current != "" {
			chunks = append(chunks, strings.TrimSpace(current))
			current = sentence
			continue
		}
		if current != "" {
			current += " " + sentence
		} else {
			current = sentence
		}
	}
	if strings.TrimSpace(current) != "" {
		chunks = append(chunks, strings.TrimSpace(current))
	}
	return chunks
}

// sentenceSplit cuts text after each terminal-punctuation-plus-whitespace
// boundary, keeping the punctuation with its sentence.
func sentenceSplit(text string) []string {
	locs := sentenceEnd.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return []string{text}
	}
	var sentences []string
	start := 0
	for _, loc := range locs {
		// cut just after the punctuation character
		end := loc[0] + 1
		sentences = append(sentences, strings.TrimSpace(text[start:end]))
		start = loc[1]
	}
	if start < len(text) && strings.TrimSpace(text[start:]) != "" {
		sentences = append(sentences, strings.TrimSpace(text[start:]))
	}
	return sentences
}

package splitter

import (
	"sort"
	"strings"
)

// sentence terminators; CJK forms included because answer corpora mix scripts.
var sentenceEnders = map[rune]bool{
	'.': true, '!': true, '?': true,
	'。': true, '！': true, '？': true,
}

// SplitSentences splits text into sentence units. Each unit keeps its
// terminator and any following whitespace, so concatenating the units
// reproduces the input exactly.
func SplitSentences(text string) []string {
	if text == "" {
		return nil
	}
	var sentences []string
	var b strings.Builder
	inTail := false // consuming whitespace (or further terminators) after a terminator
	for _, r := range text {
		if inTail && !isSpace(r) && !sentenceEnders[r] {
			sentences = append(sentences, b.String())
			b.Reset()
			inTail = false
		}
		b.WriteRune(r)
		if sentenceEnders[r] {
			inTail = true
		}
	}
	if b.Len() > 0 {
		sentences = append(sentences, b.String())
	}
	return sentences
}

func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r':
		return true
	}
	return false
}

// percentile returns the p-th percentile of values using linear interpolation
// between closest ranks. An empty input yields 0.
func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(rank)
	frac := rank - float64(lo)
	if lo+1 >= len(sorted) {
		return sorted[lo]
	}
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

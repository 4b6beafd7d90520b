package draft

import "strings"

// WordsPerMinute is the assumed reading speed for read-time estimates.
const WordsPerMinute = 220

// EstimateReadTime returns the estimated reading time of text in whole
// minutes, rounded up. Empty text estimates to zero.
func EstimateReadTime(text string) uint32 {
	words := len(strings.Fields(text))
	minutes := words / WordsPerMinute
	if words%WordsPerMinute != 0 {
		minutes++
	}
	return uint32(minutes)
}

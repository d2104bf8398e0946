package search

import "strings"

// Highlight finds non-overlapping, case-insensitive occurrences of each term
// in content and returns them as sorted, merged Ranges suitable for
// SearchResult.Highlights. Overlapping or adjacent matches are merged into a
// single Range so downstream renderers never have to deal with overlap.
func Highlight(content string, terms []string) []Range {
	if content == "" || len(terms) == 0 {
		return nil
	}

	lower := strings.ToLower(content)
	var ranges []Range

	for _, term := range terms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" {
			continue
		}
		start := 0
		for {
			idx := strings.Index(lower[start:], term)
			if idx < 0 {
				break
			}
			absStart := start + idx
			absEnd := absStart + len(term)
			ranges = append(ranges, Range{Start: absStart, End: absEnd})
			start = absEnd
		}
	}

	return mergeRanges(ranges)
}

// mergeRanges sorts ranges by start offset and merges any that overlap or
// touch, so a caller rendering highlights never has to check for overlap.
func mergeRanges(ranges []Range) []Range {
	if len(ranges) == 0 {
		return nil
	}

	sortRangesByStart(ranges)

	merged := make([]Range, 0, len(ranges))
	current := ranges[0]
	for _, r := range ranges[1:] {
		if r.Start <= current.End {
			if r.End > current.End {
				current.End = r.End
			}
			continue
		}
		merged = append(merged, current)
		current = r
	}
	merged = append(merged, current)
	return merged
}

func sortRangesByStart(ranges []Range) {
	for i := 1; i < len(ranges); i++ {
		for j := i; j > 0 && ranges[j].Start < ranges[j-1].Start; j-- {
			ranges[j], ranges[j-1] = ranges[j-1], ranges[j]
		}
	}
}

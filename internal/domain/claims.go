package domain

import (
	"sort"
	"strconv"
	"strings"
)

// FormatClaimRanges renders claim numbers as compressed ranges, e.g.
// [1,2,3,5,7,8,9] becomes "1-3, 5, 7-9". Input order and duplicates are ignored.
func FormatClaimRanges(claims []int) string {
	if len(claims) == 0 {
		return ""
	}
	sorted := append([]int(nil), claims...)
	sort.Ints(sorted)

	parts := make([]string, 0, len(sorted))
	start, prev := sorted[0], sorted[0]
	flush := func() {
		if start == prev {
			parts = append(parts, strconv.Itoa(start))
			return
		}
		parts = append(parts, strconv.Itoa(start)+"-"+strconv.Itoa(prev))
	}
	for _, n := range sorted[1:] {
		switch {
		case n == prev:
			continue
		case n == prev+1:
			prev = n
		default:
			flush()
			start, prev = n, n
		}
	}
	flush()
	return strings.Join(parts, ", ")
}

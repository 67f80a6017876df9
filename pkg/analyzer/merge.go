package analyzer

import (
	"fmt"
	"strings"
)

// MergeDiagnoses concatenates diagnosis lists while dropping duplicates of
// the same condition. Duplicate detection compares condition names
// case-insensitively after trimming; the first occurrence wins, and input
// order is otherwise preserved. Always returns a non-nil slice.
func MergeDiagnoses(lists ...[]ExtractedDiagnosis) []ExtractedDiagnosis {
	merged := []ExtractedDiagnosis{}
	seen := map[string]bool{}
	for _, list := range lists {
		for _, d := range list {
			key := strings.ToLower(strings.TrimSpace(d.ConditionName))
			if seen[key] {
				continue
			}
			seen[key] = true
			merged = append(merged, d)
		}
	}
	return merged
}

// chunkHeader labels one chunk's section of the combined raw analysis.
func chunkHeader(r pageRange, totalPages int) string {
	return fmt.Sprintf("--- pages %d-%d of %d ---", r.Start, r.End, totalPages)
}

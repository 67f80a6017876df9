package analyzer

import (
	"regexp"
	"strings"

	"github.com/claimpilot/backend/pkg/ai"
	"github.com/claimpilot/backend/pkg/logger"
)

var codeFencePattern = regexp.MustCompile("(?i)```(?:json)?")

// ParseDiagnosisResponse recovers a list of diagnoses from whatever the model
// actually returned. It tolerates markdown fences, prose around the JSON,
// truncated or slightly broken arrays, and a bare object instead of a list.
// A completely unparseable response yields an empty slice, never an error:
// one bad model reply must not sink the surrounding analysis.
func ParseDiagnosisResponse(raw string) []ExtractedDiagnosis {
	cleaned := strings.TrimSpace(codeFencePattern.ReplaceAllString(raw, ""))
	if cleaned == "" {
		return []ExtractedDiagnosis{}
	}

	if arr := sliceBetween(cleaned, '[', ']'); arr != "" {
		var items []map[string]any
		if err := ai.UnmarshalFlexible(arr, &items); err == nil {
			out := make([]ExtractedDiagnosis, 0, len(items))
			for _, item := range items {
				if item == nil {
					continue
				}
				out = append(out, DiagnosisFromUntrusted(item))
			}
			return out
		}
	}

	// Some models return a single object when they found one condition.
	if obj := sliceBetween(cleaned, '{', '}'); obj != "" {
		var item map[string]any
		if err := ai.UnmarshalFlexible(obj, &item); err == nil && looksLikeDiagnosis(item) {
			return []ExtractedDiagnosis{DiagnosisFromUntrusted(item)}
		}
	}

	logger.Warn("Model response contained no parseable diagnosis JSON", "length", len(raw))
	return []ExtractedDiagnosis{}
}

// sliceBetween returns the substring from the first open delimiter to the
// last close delimiter, or "" when no such span exists.
func sliceBetween(s string, open byte, closing byte) string {
	start := strings.IndexByte(s, open)
	end := strings.LastIndexByte(s, closing)
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

package analyzer

import (
	"strconv"
	"strings"
)

// Connection types for a claimed condition. Any other value coming back from
// a model is normalized to ConnectionDirect.
const (
	ConnectionDirect    = "direct"
	ConnectionSecondary = "secondary"
)

// UnspecifiedCondition is the placeholder condition name used when the model
// omits one. A normalized diagnosis never has an empty ConditionName.
const UnspecifiedCondition = "Unspecified condition"

// CategoryOther is the fallback bucket of the category taxonomy.
const CategoryOther = "OTHER"

// Categories is the fixed taxonomy for extracted conditions.
var Categories = []string{
	"MUSCULOSKELETAL",
	"MENTAL_HEALTH",
	"NEUROLOGICAL",
	"RESPIRATORY",
	"CARDIOVASCULAR",
	"AUDITORY",
	"VISUAL",
	"SKIN",
	"DIGESTIVE",
	"GENITOURINARY",
	"ENDOCRINE",
	CategoryOther,
}

var categorySet = func() map[string]bool {
	set := make(map[string]bool, len(Categories))
	for _, c := range Categories {
		set[c] = true
	}
	return set
}()

// ExtractedDiagnosis is one claimable medical finding pulled out of an
// uploaded record. Instances are built exclusively through
// DiagnosisFromUntrusted or NormalizeDiagnosis so the field invariants hold
// regardless of what the model produced.
type ExtractedDiagnosis struct {
	ConditionName    string   `json:"conditionName"`
	DiagnosticCode   string   `json:"diagnosticCode"`
	CFRReference     string   `json:"cfrReference"`
	OnsetDate        string   `json:"onsetDate"`
	ConnectionType   string   `json:"connectionType"`
	IsPresumptive    bool     `json:"isPresumptive"`
	SourceDocument   string   `json:"sourceDocument"`
	SupportingQuotes []string `json:"supportingQuotes"`
	Category         string   `json:"category"`
	// PageNumber is a 1-based page hint. For chunked scanned PDFs where the
	// model gave no page, it is back-filled with the chunk's first absolute
	// page and is therefore an approximation, not an exact location.
	PageNumber string `json:"pageNumber,omitempty"`
}

// NormalizeDiagnosis enforces the field invariants on a diagnosis:
// non-empty condition name, connection type in {direct, secondary}, category
// from the fixed taxonomy, and a non-nil quotes slice. It is idempotent.
func NormalizeDiagnosis(d ExtractedDiagnosis) ExtractedDiagnosis {
	d.ConditionName = strings.TrimSpace(d.ConditionName)
	if d.ConditionName == "" {
		d.ConditionName = UnspecifiedCondition
	}

	switch strings.ToLower(strings.TrimSpace(d.ConnectionType)) {
	case ConnectionSecondary:
		d.ConnectionType = ConnectionSecondary
	default:
		d.ConnectionType = ConnectionDirect
	}

	category := strings.ToUpper(strings.TrimSpace(d.Category))
	category = strings.ReplaceAll(category, " ", "_")
	if !categorySet[category] {
		category = CategoryOther
	}
	d.Category = category

	if d.SupportingQuotes == nil {
		d.SupportingQuotes = []string{}
	}

	d.DiagnosticCode = strings.TrimSpace(d.DiagnosticCode)
	d.CFRReference = strings.TrimSpace(d.CFRReference)
	d.OnsetDate = strings.TrimSpace(d.OnsetDate)
	d.PageNumber = strings.TrimSpace(d.PageNumber)

	return d
}

// conditionNameKeys are the key aliases checked when deciding whether a
// parsed object is diagnosis-shaped at all.
var conditionNameKeys = []string{"conditionName", "condition_name", "condition", "name"}

// DiagnosisFromUntrusted builds a normalized diagnosis from a raw decoded
// JSON object. Model output is duck-typed: every known field is looked up
// under both camelCase and snake_case aliases, values are coerced to the
// expected type, and anything missing or malformed falls back to its default.
func DiagnosisFromUntrusted(m map[string]any) ExtractedDiagnosis {
	d := ExtractedDiagnosis{
		ConditionName:    stringField(m, conditionNameKeys...),
		DiagnosticCode:   stringField(m, "diagnosticCode", "diagnostic_code"),
		CFRReference:     stringField(m, "cfrReference", "cfr_reference", "cfr"),
		OnsetDate:        stringField(m, "onsetDate", "onset_date"),
		ConnectionType:   stringField(m, "connectionType", "connection_type"),
		IsPresumptive:    boolField(m, "isPresumptive", "is_presumptive"),
		SourceDocument:   stringField(m, "sourceDocument", "source_document"),
		SupportingQuotes: stringSliceField(m, "supportingQuotes", "supporting_quotes", "quotes"),
		Category:         stringField(m, "category"),
		PageNumber:       stringField(m, "pageNumber", "page_number", "page"),
	}
	return NormalizeDiagnosis(d)
}

func looksLikeDiagnosis(m map[string]any) bool {
	for _, key := range conditionNameKeys {
		if _, ok := m[key]; ok {
			return true
		}
	}
	return false
}

func stringField(m map[string]any, keys ...string) string {
	for _, key := range keys {
		value, ok := m[key]
		if !ok || value == nil {
			continue
		}
		switch v := value.(type) {
		case string:
			return v
		case float64:
			if v == float64(int64(v)) {
				return strconv.FormatInt(int64(v), 10)
			}
			return strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			return strconv.FormatBool(v)
		}
	}
	return ""
}

func boolField(m map[string]any, keys ...string) bool {
	for _, key := range keys {
		value, ok := m[key]
		if !ok || value == nil {
			continue
		}
		switch v := value.(type) {
		case bool:
			return v
		case string:
			lowered := strings.ToLower(strings.TrimSpace(v))
			return lowered == "true" || lowered == "yes"
		}
	}
	return false
}

func stringSliceField(m map[string]any, keys ...string) []string {
	for _, key := range keys {
		value, ok := m[key]
		if !ok || value == nil {
			continue
		}
		switch v := value.(type) {
		case []any:
			out := make([]string, 0, len(v))
			for _, item := range v {
				if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
					out = append(out, s)
				}
			}
			return out
		case string:
			if strings.TrimSpace(v) == "" {
				return []string{}
			}
			return []string{v}
		}
	}
	return []string{}
}

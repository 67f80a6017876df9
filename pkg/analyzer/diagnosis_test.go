package analyzer

import (
	"reflect"
	"testing"
)

func TestNormalizeDiagnosis(t *testing.T) {
	t.Run("empty condition name gets placeholder", func(t *testing.T) {
		d := NormalizeDiagnosis(ExtractedDiagnosis{ConditionName: "   "})
		if d.ConditionName != UnspecifiedCondition {
			t.Fatalf("expected placeholder condition name, got %q", d.ConditionName)
		}
	})

	t.Run("unknown connection type becomes direct", func(t *testing.T) {
		for _, raw := range []string{"", "presumptive", "DIRECT", "Secondary", "nonsense"} {
			d := NormalizeDiagnosis(ExtractedDiagnosis{ConditionName: "Tinnitus", ConnectionType: raw})
			if d.ConnectionType != ConnectionDirect && d.ConnectionType != ConnectionSecondary {
				t.Fatalf("connection type %q normalized to %q, outside the allowed set", raw, d.ConnectionType)
			}
		}
	})

	t.Run("secondary survives normalization", func(t *testing.T) {
		d := NormalizeDiagnosis(ExtractedDiagnosis{ConditionName: "Radiculopathy", ConnectionType: " Secondary "})
		if d.ConnectionType != ConnectionSecondary {
			t.Fatalf("expected secondary, got %q", d.ConnectionType)
		}
	})

	t.Run("unknown category becomes OTHER", func(t *testing.T) {
		d := NormalizeDiagnosis(ExtractedDiagnosis{ConditionName: "Tinnitus", Category: "hearing stuff"})
		if d.Category != CategoryOther {
			t.Fatalf("expected OTHER, got %q", d.Category)
		}
	})

	t.Run("category is case and space tolerant", func(t *testing.T) {
		d := NormalizeDiagnosis(ExtractedDiagnosis{ConditionName: "PTSD", Category: "mental health"})
		if d.Category != "MENTAL_HEALTH" {
			t.Fatalf("expected MENTAL_HEALTH, got %q", d.Category)
		}
	})

	t.Run("nil quotes become empty slice", func(t *testing.T) {
		d := NormalizeDiagnosis(ExtractedDiagnosis{ConditionName: "PTSD"})
		if d.SupportingQuotes == nil {
			t.Fatal("expected non-nil supporting quotes")
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		in := ExtractedDiagnosis{
			ConditionName:  "  Lumbar Strain ",
			ConnectionType: "SECONDARY",
			Category:       "musculoskeletal",
			PageNumber:     " 4 ",
		}
		once := NormalizeDiagnosis(in)
		twice := NormalizeDiagnosis(once)
		if !reflect.DeepEqual(once, twice) {
			t.Fatalf("normalization not idempotent:\nonce:  %+v\ntwice: %+v", once, twice)
		}
	})
}

func TestDiagnosisFromUntrusted(t *testing.T) {
	t.Run("camelCase keys", func(t *testing.T) {
		d := DiagnosisFromUntrusted(map[string]any{
			"conditionName":    "Tinnitus",
			"diagnosticCode":   "6260",
			"cfrReference":     "38 CFR 4.87",
			"connectionType":   "direct",
			"isPresumptive":    false,
			"supportingQuotes": []any{"ringing in both ears"},
			"category":         "AUDITORY",
			"pageNumber":       "3",
		})
		if d.ConditionName != "Tinnitus" || d.DiagnosticCode != "6260" || d.Category != "AUDITORY" || d.PageNumber != "3" {
			t.Fatalf("unexpected diagnosis: %+v", d)
		}
		if len(d.SupportingQuotes) != 1 {
			t.Fatalf("expected 1 quote, got %d", len(d.SupportingQuotes))
		}
	})

	t.Run("snake_case keys", func(t *testing.T) {
		d := DiagnosisFromUntrusted(map[string]any{
			"condition_name":    "PTSD",
			"diagnostic_code":   "9411",
			"connection_type":   "secondary",
			"is_presumptive":    true,
			"supporting_quotes": []any{"meets DSM-5 criteria"},
			"page_number":       7.0,
		})
		if d.ConditionName != "PTSD" || d.DiagnosticCode != "9411" {
			t.Fatalf("unexpected diagnosis: %+v", d)
		}
		if d.ConnectionType != ConnectionSecondary {
			t.Fatalf("expected secondary, got %q", d.ConnectionType)
		}
		if !d.IsPresumptive {
			t.Fatal("expected presumptive")
		}
		if d.PageNumber != "7" {
			t.Fatalf("expected page 7, got %q", d.PageNumber)
		}
	})

	t.Run("numeric diagnostic code coerced to string", func(t *testing.T) {
		d := DiagnosisFromUntrusted(map[string]any{
			"condition":      "Sleep Apnea",
			"diagnosticCode": 6847.0,
		})
		if d.DiagnosticCode != "6847" {
			t.Fatalf("expected 6847, got %q", d.DiagnosticCode)
		}
	})

	t.Run("string presumptive flag", func(t *testing.T) {
		d := DiagnosisFromUntrusted(map[string]any{
			"name":          "Hypertension",
			"isPresumptive": "true",
		})
		if !d.IsPresumptive {
			t.Fatal("expected presumptive from string flag")
		}
	})

	t.Run("single quote string becomes slice", func(t *testing.T) {
		d := DiagnosisFromUntrusted(map[string]any{
			"conditionName": "Migraines",
			"quotes":        "chronic daily headaches",
		})
		if len(d.SupportingQuotes) != 1 || d.SupportingQuotes[0] != "chronic daily headaches" {
			t.Fatalf("unexpected quotes: %v", d.SupportingQuotes)
		}
	})

	t.Run("empty object still yields valid diagnosis", func(t *testing.T) {
		d := DiagnosisFromUntrusted(map[string]any{})
		if d.ConditionName != UnspecifiedCondition {
			t.Fatalf("expected placeholder name, got %q", d.ConditionName)
		}
		if d.ConnectionType != ConnectionDirect || d.Category != CategoryOther || d.SupportingQuotes == nil {
			t.Fatalf("invariants violated: %+v", d)
		}
	})
}

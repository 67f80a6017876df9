package analyzer

import (
	"context"
	"fmt"

	"github.com/claimpilot/backend/internal/util"
	"github.com/claimpilot/backend/pkg/ai"
)

// DocumentClassification is the structured result of the document-type
// pre-classification pass.
type DocumentClassification struct {
	DocumentType string  `json:"document_type" jsonschema_description:"One of: service_treatment_record, va_medical_record, private_treatment_record, dbq_form, nexus_letter, lay_statement, decision_letter, other"`
	Confidence   float64 `json:"confidence" jsonschema_description:"Classifier confidence between 0 and 1"`
}

const docTypeExcerptChars = 2000

// ClassifyDocument asks the model what kind of record an excerpt comes
// from, using schema-constrained output. Callers treat failures as
// non-fatal; classification only enriches the extraction result.
func (a *Analyzer) ClassifyDocument(ctx context.Context, text string) (*DocumentClassification, error) {
	excerpt := text
	if len(excerpt) > docTypeExcerptChars {
		excerpt = excerpt[:docTypeExcerptChars]
	}

	classification, err := util.RetryWithContext(ctx, 2, func(ctx context.Context) (*DocumentClassification, error) {
		var out DocumentClassification
		err := a.client.GenerateChatWithFormat(
			ctx,
			"document_classification",
			"The document type and confidence for a medical record excerpt",
			[]ai.ChatMessage{{Role: "user", Message: excerpt}},
			&out,
			ai.WithModel(a.cfg.Model),
			ai.WithSystemPrompts(documentTypePrompt),
			ai.WithMaxTokens(256),
		)
		if err != nil {
			return nil, err
		}
		if out.DocumentType == "" {
			return nil, fmt.Errorf("classifier returned no document type")
		}
		return &out, nil
	})
	if err != nil {
		return nil, fmt.Errorf("classify document: %w", err)
	}
	return classification, nil
}

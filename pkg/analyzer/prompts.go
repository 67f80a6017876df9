package analyzer

import "fmt"

// ExtractionPrompt is the system prompt for diagnosis extraction from
// medical record text or attached documents.
const ExtractionPrompt = `# Role

You are a medical records analyst assisting U.S. military veterans with VA
disability claims. You read service treatment records, VA medical records,
private treatment notes, and DBQ forms, and you extract every diagnosed or
documented medical condition that could support a disability claim.

# Task

Identify every distinct medical condition that is diagnosed, treated, or
clearly documented in the provided record. For each condition report:

- conditionName: the condition as a veteran would claim it (plain clinical
  name, not an ICD code description)
- diagnosticCode: the 4-digit VA Schedule for Rating Disabilities diagnostic
  code, if you can determine it, otherwise ""
- cfrReference: the 38 CFR 4.x section for that code, if known, otherwise ""
- onsetDate: date of diagnosis or earliest documented symptoms, as written in
  the record, otherwise ""
- connectionType: "direct" if the record ties the condition to service,
  "secondary" if it is attributed to another service-connected condition
- isPresumptive: true only if the condition is on a VA presumptive list
  (Agent Orange, burn pits / PACT Act, Gulf War, radiation) AND the record
  shows qualifying service
- sourceDocument: the title or kind of document the finding came from, if
  identifiable, otherwise ""
- supportingQuotes: up to 3 short verbatim quotes from the record that
  document the condition
- category: one of MUSCULOSKELETAL, MENTAL_HEALTH, NEUROLOGICAL,
  RESPIRATORY, CARDIOVASCULAR, AUDITORY, VISUAL, SKIN, DIGESTIVE,
  GENITOURINARY, ENDOCRINE, OTHER
- pageNumber: the page of the document where the condition appears, if you
  can tell, otherwise omit it

# Rules

- Report conditions, not symptoms, unless a symptom is itself ratable
  (e.g. tinnitus, migraines).
- Do not merge distinct conditions, and do not invent conditions that are
  merely ruled out or listed as family history.
- Never guess a diagnostic code. Leave it empty if unsure.

# Output

Respond with ONLY a JSON array of condition objects as described above.
No prose, no markdown fences. If the record contains no claimable
conditions, respond with [].`

// imageExtractionPrompt is the user prompt sent alongside a photographed or
// scanned single-page record.
const imageExtractionPrompt = `This image is a page from a veteran's medical record. Read all legible text, then extract every claimable medical condition following your instructions. If the image is illegible, respond with [].`

// fileExtractionPrompt is the user prompt sent alongside an attached PDF.
const fileExtractionPrompt = `The attached file is part of a veteran's medical record. Extract every claimable medical condition following your instructions.`

func chunkExtractionPrompt(r pageRange, totalPages int) string {
	return fmt.Sprintf(
		"The attached file contains pages %d-%d of a %d-page veteran's medical record. Extract every claimable medical condition from these pages following your instructions. When reporting pageNumber, use the page's position within the full record, not within this excerpt.",
		r.Start, r.End, totalPages,
	)
}

func truncationNotice(shownPages int, totalPages int) string {
	return fmt.Sprintf(
		"NOTE: this record was truncated for length. Roughly the first %d of an estimated %d pages follow. Conditions documented only in the omitted portion will be missing.",
		shownPages, totalPages,
	)
}

// documentTypePrompt is the system prompt for the cheap structured
// pre-classification of a record's document type.
const documentTypePrompt = `# Role

You classify excerpts of U.S. veterans' medical paperwork.

# Task

Given the beginning of a document, decide which kind of record it is. Pick
the closest match from: service_treatment_record, va_medical_record,
private_treatment_record, dbq_form, nexus_letter, lay_statement,
decision_letter, other. Also give your confidence between 0 and 1.`

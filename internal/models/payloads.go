package models

// DocumentSummary is the phase 1 answer: a quick look at what was uploaded.
type DocumentSummary struct {
	CompanyName               string `json:"company_name,omitempty"`
	BalanceSheetDate          string `json:"balance_sheet_date,omitempty"`
	FiscalYear                string `json:"fiscal_year,omitempty"`
	DocumentPages             int    `json:"document_pages,omitempty"`
	ContainsStatoPatrimoniale bool   `json:"contains_stato_patrimoniale"`
	ContainsContoEconomico    bool   `json:"contains_conto_economico"`
	ContainsNotaIntegrativa   bool   `json:"contains_nota_integrativa"`
	Currency                  string `json:"currency,omitempty"`
	DocumentQuality           string `json:"document_quality,omitempty"`
}

// ValidationResult is the phase 3 answer. CorrectedData has the same shape as
// the extracted data.
type ValidationResult struct {
	IsBalanced        bool           `json:"is_balanced"`
	BalanceDifference float64        `json:"balance_difference"`
	CorrectionsMade   []any          `json:"corrections_made"`
	CorrectedData     map[string]any `json:"corrected_data"`
}

// GCSEvent is the payload of a storage object-finalized CloudEvent.
type GCSEvent struct {
	Bucket      string `json:"bucket"`
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Size        string `json:"size"`
}

// BucketResult is returned by the bucket trigger and passed to the follow-up
// workflow.
type BucketResult struct {
	JobID     string `json:"jobId"`
	Status    string `json:"status"`
	OutputURI string `json:"outputUri,omitempty"`
	TextURI   string `json:"textUri,omitempty"`
}

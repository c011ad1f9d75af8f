package domain

// TopK is the number of ranked predictions returned per classification.
const TopK = 3

type Prediction struct {
	CategoryID   int     `json:"category_id"`
	CategoryName string  `json:"category_name"`
	Score        float64 `json:"score"`
}

type BatchRowStatus string

const (
	RowClassified BatchRowStatus = "classified"
	RowSkipped    BatchRowStatus = "skipped"
	RowFailed     BatchRowStatus = "failed"
)

type BatchRowResult struct {
	Row             int            `json:"row"`
	Status          BatchRowStatus `json:"status"`
	DocumentID      int64          `json:"document_id,omitempty"`
	PrimaryCategory string         `json:"primary_category,omitempty"`
	TopPredictions  []Prediction   `json:"top_predictions,omitempty"`
	Error           string         `json:"error,omitempty"`
}

type BatchSummary struct {
	Filename       string           `json:"filename"`
	TotalRows      int              `json:"total_rows"`
	ProcessedCount int              `json:"processed_count"`
	SkippedCount   int              `json:"skipped_count"`
	FailedCount    int              `json:"failed_count"`
	Results        []BatchRowResult `json:"results"`
}

// Record folds one row outcome into the summary counters.
func (s *BatchSummary) Record(row BatchRowResult) {
	switch row.Status {
	case RowClassified:
		s.ProcessedCount++
	case RowSkipped:
		s.SkippedCount++
	case RowFailed:
		s.FailedCount++
	}
	s.Results = append(s.Results, row)
}

// Table is a parsed spreadsheet: one header row followed by data rows.
type Table struct {
	Header []string
	Rows   [][]string
}

type BatchRow struct {
	Number int
	Text   string
}

// BatchInput is a validated upload ready to run: the text column has been
// located and every data row extracted.
type BatchInput struct {
	Filename string
	Column   string
	Rows     []BatchRow
	// ArchiveKey names the stored copy of the upload, empty when not archived.
	ArchiveKey string
}

type BatchProgress struct {
	Index     int            `json:"index"`
	Total     int            `json:"total"`
	Processed int            `json:"processed"`
	Result    BatchRowResult `json:"result"`
}

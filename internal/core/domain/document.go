package domain

import "time"

// Document is one persisted classification. It is created once per request
// and never updated.
type Document struct {
	ID              int64     `json:"id"`
	Content         string    `json:"content"`
	CategoryID      int       `json:"category_id"`
	ConfidenceScore float64   `json:"confidence_score"`
	ModelVersion    string    `json:"model_version"`
	CreatedAt       time.Time `json:"created_at"`
}

// NewDocument carries the columns the application supplies on insert; the
// store generates ID and CreatedAt.
type NewDocument struct {
	Content         string
	CategoryID      int
	ConfidenceScore float64
	ModelVersion    string
}

// HistoryLog is written by the store-side trigger for every inserted document.
type HistoryLog struct {
	ID              int64     `json:"id"`
	DocumentID      int64     `json:"document_id"`
	ActionType      string    `json:"action_type"`
	CategoryID      int       `json:"category_id"`
	Category        string    `json:"category"`
	ConfidenceScore float64   `json:"confidence_score"`
	ModelVersion    string    `json:"model_version"`
	PredictionAt    time.Time `json:"prediction_at"`
}

const ActionPrediction = "PREDICTION"

type HistoryEntry struct {
	ID        int64     `json:"id"`
	Content   string    `json:"content"`
	Category  string    `json:"category"`
	Score     float64   `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}

type ClassificationResult struct {
	Status          string       `json:"status"`
	PrimaryCategory string       `json:"primary_category"`
	TopPredictions  []Prediction `json:"top_predictions"`
	DocumentID      int64        `json:"document_id"`
	Timestamp       time.Time    `json:"timestamp"`
}

// ClassifiedEvent is published after a document has been committed.
type ClassifiedEvent struct {
	DocumentID      int64     `json:"document_id"`
	CategoryID      int       `json:"category_id"`
	CategoryName    string    `json:"category_name"`
	ConfidenceScore float64   `json:"confidence_score"`
	ModelVersion    string    `json:"model_version"`
	CreatedAt       time.Time `json:"created_at"`
}

package models

import (
	"time"
)

type StrategyType string

const (
	StrategyHeader    StrategyType = "header"
	StrategyFooter    StrategyType = "footer"
	StrategySignature StrategyType = "signature"
)

// UnknownSupplier is stored when neither the OCR service nor the heuristics
// produced a supplier name.
const UnknownSupplier = "UNKNOWN"

type PositionStrategy struct {
	Type        StrategyType `json:"type"`
	SearchArea  string       `json:"searchArea"`
	Priority    int          `json:"priority"`
	Description string       `json:"description"`
}

// SupplierPattern is a learned extraction bias for one supplier. CustomPrompt
// is derived from Strategies by the learning service and never edited by hand.
type SupplierPattern struct {
	ID               string             `json:"id"`
	SupplierName     string             `json:"supplierName"`
	Confidence       int                `json:"confidence"`
	Strategies       []PositionStrategy `json:"strategies"`
	CustomPrompt     string             `json:"customPrompt"`
	LearningSessions int                `json:"learningSessions"`
	SuccessRate      float64            `json:"successRate"`
	CreatedAt        time.Time          `json:"createdAt"`
	UpdatedAt        time.Time          `json:"updatedAt"`
}

type OCRProcessing struct {
	ID                   string    `json:"id"`
	Filename             string    `json:"filename"`
	RawText              string    `json:"rawText"`
	DetectedSupplierName string    `json:"detectedSupplierName"`
	Confidence           float64   `json:"confidence"`
	Engine               string    `json:"engine"`
	Model                string    `json:"model"`
	ProcessingTimeMS     int64     `json:"processingTime"`
	AIAnalysis           []byte    `json:"-"`
	CreatedAt            time.Time `json:"createdAt"`
}

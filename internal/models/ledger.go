package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Project struct {
	ID             string          `gorm:"primaryKey" json:"id"`
	Name           string          `gorm:"not null" json:"name"`
	PlannedBudget  decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"plannedBudget"`
	ConsumedBudget decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"consumedBudget"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

func NewProject(name string, planned decimal.Decimal) *Project {
	now := time.Now().UTC()
	return &Project{
		ID:             uuid.New().String(),
		Name:           name,
		PlannedBudget:  planned,
		ConsumedBudget: decimal.Zero,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func (Project) TableName() string { return "projects" }

type Supplier struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Address   string    `json:"address"`
	TaxID     string    `json:"taxId"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Supplier) TableName() string { return "suppliers" }

type Invoice struct {
	ID              string          `gorm:"primaryKey" json:"id"`
	InvoiceNumber   string          `json:"invoiceNumber"`
	SupplierID      string          `json:"supplierId"`
	SupplierName    string          `json:"supplierName"`
	InvoiceDate     string          `json:"invoiceDate"`
	DueDate         string          `json:"dueDate"`
	NetAmount       decimal.Decimal `gorm:"type:numeric(14,2)" json:"netAmount"`
	VATAmount       decimal.Decimal `gorm:"column:vat_amount;type:numeric(14,2)" json:"vatAmount"`
	GrossAmount     decimal.Decimal `gorm:"type:numeric(14,2)" json:"grossAmount"`
	Currency        string          `json:"currency"`
	OCRProcessingID string          `gorm:"column:ocr_processing_id" json:"ocrProcessingId"`
	ReviewSessionID string          `json:"reviewSessionId"`
	CreatedAt       time.Time       `json:"createdAt"`
}

func (Invoice) TableName() string { return "invoices" }

type InvoicePosition struct {
	ID            string          `gorm:"primaryKey" json:"id"`
	InvoiceID     string          `gorm:"not null" json:"invoiceId"`
	ProjectID     string          `gorm:"not null" json:"projectId"`
	PositionIndex int             `json:"positionIndex"`
	Description   string          `json:"description"`
	Quantity      decimal.Decimal `gorm:"type:numeric(14,4)" json:"quantity"`
	UnitPrice     decimal.Decimal `gorm:"type:numeric(14,2)" json:"unitPrice"`
	NetAmount     decimal.Decimal `gorm:"type:numeric(14,2)" json:"netAmount"`
	VATRate       decimal.Decimal `gorm:"column:vat_rate;type:numeric(5,2)" json:"vatRate"`
	CreatedAt     time.Time       `json:"createdAt"`
}

func (InvoicePosition) TableName() string { return "invoice_positions" }

type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending"
	ReviewApproved ReviewStatus = "approved"
	ReviewRejected ReviewStatus = "rejected"
)

type ReviewSession struct {
	ID              string         `gorm:"primaryKey" json:"id"`
	OCRProcessingID string         `gorm:"column:ocr_processing_id;not null" json:"ocrProcessingId"`
	Status          ReviewStatus   `gorm:"not null" json:"status"`
	ExtractedData   datatypes.JSON `json:"extractedData"`
	EditedData      datatypes.JSON `json:"editedData,omitempty"`
	InvoiceID       *string        `json:"invoiceId,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
	ApprovedAt      *time.Time     `json:"approvedAt,omitempty"`
}

func (ReviewSession) TableName() string { return "review_sessions" }

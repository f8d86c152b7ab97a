package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ExtractedInvoice is the transient result of an AI extraction. It lives in
// review sessions until approval turns it into invoice and position rows.
type ExtractedInvoice struct {
	Supplier        SupplierBlock  `json:"supplier"`
	Recipient       RecipientBlock `json:"recipient"`
	Invoice         InvoiceBlock   `json:"invoice"`
	Positions       []LineItem     `json:"positions"`
	Totals          Totals         `json:"totals"`
	Confidence      float64        `json:"confidence"`
	ExtractedFields []string       `json:"extractedFields,omitempty"`
	RawText         string         `json:"rawText,omitempty"`
}

type SupplierBlock struct {
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
	TaxID   string `json:"taxId,omitempty"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Website string `json:"website,omitempty"`
}

type RecipientBlock struct {
	Name    string `json:"name,omitempty"`
	Address string `json:"address,omitempty"`
}

type InvoiceBlock struct {
	Number   string `json:"number"`
	Date     string `json:"date,omitempty"`
	DueDate  string `json:"dueDate,omitempty"`
	Currency string `json:"currency,omitempty"`
}

type LineItem struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Total       decimal.Decimal `json:"totalPrice"`
	VATRate     decimal.Decimal `json:"vatRate"`
}

// NetAmount is the amount charged against a project budget. Total wins when
// the extraction provided one.
func (l LineItem) NetAmount() decimal.Decimal {
	if !l.Total.IsZero() {
		return l.Total.Round(2)
	}
	return l.Quantity.Mul(l.UnitPrice).Round(2)
}

type Totals struct {
	Net   decimal.Decimal `json:"netAmount"`
	VAT   decimal.Decimal `json:"vatAmount"`
	Gross decimal.Decimal `json:"grossAmount"`
}

// SupplierName returns the trimmed supplier name or an empty string.
func (e *ExtractedInvoice) SupplierName() string {
	if e == nil {
		return ""
	}
	return strings.TrimSpace(e.Supplier.Name)
}

// NetTotal sums the line items when the totals block is empty.
func (e *ExtractedInvoice) NetTotal() decimal.Decimal {
	if !e.Totals.Net.IsZero() {
		return e.Totals.Net
	}
	sum := decimal.Zero
	for _, p := range e.Positions {
		sum = sum.Add(p.NetAmount())
	}
	return sum
}

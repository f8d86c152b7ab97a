// Package processing turns a stored invoice document into an OCR record: text
// layer and page image, supplier pattern lookup, prompt, AI extraction and
// pattern learning.
package processing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kdimtricp/budgetmanager/internal/ai"
	"github.com/kdimtricp/budgetmanager/internal/database"
	"github.com/kdimtricp/budgetmanager/internal/metrics"
	"github.com/kdimtricp/budgetmanager/internal/models"
	"github.com/kdimtricp/budgetmanager/internal/patterns"
	"github.com/kdimtricp/budgetmanager/internal/storage"
	"go.uber.org/zap"
)

// patternLookupCandidates bounds how many ranked supplier names are tried
// against stored patterns.
const patternLookupCandidates = 3

// Document is an invoice file already placed in storage.
type Document struct {
	// Path is the absolute location of the file.
	Path string
	// Filename is the name the user uploaded it under.
	Filename string
}

// Result is the upload response payload.
type Result struct {
	OCRProcessingID string                   `json:"ocrProcessingId"`
	Engine          string                   `json:"engine"`
	Model           string                   `json:"model"`
	Confidence      float64                  `json:"confidence"`
	ProcessingTime  int64                    `json:"processingTime"`
	AIAnalysis      *models.ExtractedInvoice `json:"aiAnalysis"`
	PatternUsed     string                   `json:"patternUsed,omitempty"`
	PatternLearned  bool                     `json:"patternLearned"`
}

type Pipeline struct {
	rasterizer ai.Rasterizer
	textLayer  func(path string) (string, error)
	provider   ai.Provider
	patterns   *patterns.Service
	ocr        *database.OCRRepo
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

func NewPipeline(
	rasterizer ai.Rasterizer,
	provider ai.Provider,
	patternService *patterns.Service,
	ocr *database.OCRRepo,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		rasterizer: rasterizer,
		textLayer:  ai.ExtractTextLayer,
		provider:   provider,
		patterns:   patternService,
		ocr:        ocr,
		metrics:    m,
		logger:     logger,
	}
}

// Process runs one document through extraction. Conversion and extraction
// errors abort the document; pattern lookup and learning failures are logged.
func (p *Pipeline) Process(ctx context.Context, doc Document) (*Result, error) {
	start := time.Now()
	engine := p.provider.Name()

	result, err := p.process(ctx, doc, start)
	if err != nil {
		var convErr *ai.ConversionError
		if errors.As(err, &convErr) {
			p.metrics.RecordConversionFailure()
		}
		p.metrics.RecordUpload(engine, metrics.StatusError, time.Since(start))
		p.logger.Error("invoice processing failed",
			zap.String("filename", doc.Filename),
			zap.String("engine", engine),
			zap.Error(err))
		return nil, err
	}

	p.metrics.RecordUpload(engine, metrics.StatusSuccess, time.Since(start))
	return result, nil
}

func (p *Pipeline) process(ctx context.Context, doc Document, start time.Time) (*Result, error) {
	kind, err := storage.KindOf(doc.Path)
	if err != nil {
		return nil, err
	}

	var rawText string
	req := ai.ExtractionRequest{}

	switch kind {
	case storage.KindPDF:
		rawText, err = p.textLayer(doc.Path)
		if err != nil {
			p.logger.Debug("no usable text layer", zap.String("filename", doc.Filename), zap.Error(err))
			rawText = ""
		}
		req.ImageBase64, err = ai.ConvertToBase64(ctx, p.rasterizer, doc.Path)
		if err != nil {
			return nil, err
		}
		req.MediaType = "image/jpeg"
	case storage.KindImage:
		req.ImageBase64, req.MediaType, err = ai.PrepareImage(doc.Path)
		if err != nil {
			return nil, fmt.Errorf("preparing image: %w", err)
		}
	}

	pattern := p.findPattern(ctx, rawText)
	req.Prompt = patterns.GenerateOptimizedPrompt(rawText, pattern)

	extraction, err := p.provider.Extract(ctx, req)
	if err != nil {
		return nil, err
	}
	invoice := extraction.Invoice
	if invoice == nil {
		return nil, &ai.ExtractionError{Provider: p.provider.Name(), Err: errors.New("empty extraction result")}
	}
	if rawText == "" {
		rawText = invoice.RawText
	}

	analysis, err := json.Marshal(invoice)
	if err != nil {
		return nil, fmt.Errorf("encoding ai analysis: %w", err)
	}

	elapsed := time.Since(start)
	rec := &models.OCRProcessing{
		Filename:             doc.Filename,
		RawText:              rawText,
		DetectedSupplierName: invoice.SupplierName(),
		Confidence:           invoice.Confidence,
		Engine:               p.provider.Name(),
		Model:                extraction.Model,
		ProcessingTimeMS:     elapsed.Milliseconds(),
		AIAnalysis:           analysis,
	}
	if err := p.ocr.Create(ctx, rec); err != nil {
		return nil, err
	}

	result := &Result{
		OCRProcessingID: rec.ID,
		Engine:          rec.Engine,
		Model:           rec.Model,
		Confidence:      rec.Confidence,
		ProcessingTime:  rec.ProcessingTimeMS,
		AIAnalysis:      invoice,
	}
	if pattern != nil {
		result.PatternUsed = pattern.SupplierName
	}
	result.PatternLearned = p.learn(ctx, rawText, rec.DetectedSupplierName)

	p.logger.Info("invoice processed",
		zap.String("ocr_processing_id", rec.ID),
		zap.String("filename", doc.Filename),
		zap.String("supplier", rec.DetectedSupplierName),
		zap.Float64("confidence", rec.Confidence),
		zap.Int64("processing_ms", rec.ProcessingTimeMS))
	return result, nil
}

// findPattern looks up stored patterns for the best heuristic supplier
// candidates of rawText.
func (p *Pipeline) findPattern(ctx context.Context, rawText string) *models.SupplierPattern {
	if strings.TrimSpace(rawText) == "" {
		return nil
	}
	ranked := patterns.RankCandidates(patterns.AnalyzeText(rawText).SupplierNames)

	names := make([]string, 0, patternLookupCandidates)
	for i := 0; i < len(ranked) && i < patternLookupCandidates; i++ {
		names = append(names, ranked[i].Text)
	}

	pattern, err := p.patterns.FindPattern(ctx, names...)
	if err != nil {
		p.logger.Warn("supplier pattern lookup failed", zap.Error(err))
		return nil
	}
	if pattern != nil {
		p.logger.Debug("using supplier pattern",
			zap.String("supplier", pattern.SupplierName),
			zap.Float64("success_rate", pattern.SuccessRate))
	}
	return pattern
}

func (p *Pipeline) learn(ctx context.Context, rawText, supplierName string) bool {
	if strings.TrimSpace(rawText) == "" {
		return false
	}
	_, created, err := p.patterns.LearnIfUnseen(ctx, rawText, supplierName)
	if err != nil {
		p.logger.Warn("supplier pattern learning failed",
			zap.String("supplier", supplierName),
			zap.Error(err))
		return false
	}
	if created {
		p.metrics.RecordPatternLearned()
	}
	return created
}

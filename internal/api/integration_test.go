package api_test

import (
	"bytes"
	"encoding/json"
	"image/color"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/jarcoal/httpmock"
	"github.com/kdimtricp/budgetmanager/internal/ai"
	"github.com/kdimtricp/budgetmanager/internal/api"
	"github.com/kdimtricp/budgetmanager/internal/budgetsync"
	"github.com/kdimtricp/budgetmanager/internal/database"
	"github.com/kdimtricp/budgetmanager/internal/database/dbtest"
	"github.com/kdimtricp/budgetmanager/internal/patterns"
	"github.com/kdimtricp/budgetmanager/internal/processing"
	"github.com/kdimtricp/budgetmanager/internal/review"
	"github.com/kdimtricp/budgetmanager/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const anthropicReply = `{
  "supplier": {"name": "DEFINE", "taxId": "ATU12345678"},
  "invoice": {"number": "2024-001", "date": "2024-03-01", "currency": "EUR"},
  "positions": [
    {"description": "Logo Design", "quantity": 1, "unitPrice": 100, "totalPrice": 100, "vatRate": 20}
  ],
  "totals": {"netAmount": 100, "vatAmount": 20, "grossAmount": 120},
  "confidence": 87,
  "rawText": "DEFINE\nStraße 1\n4658 Ort\nATU12345678\nVielen Dank\nIhr DEFINE Team"
}`

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type testServer struct {
	*httptest.Server
	t *testing.T
}

func setupTestServer(t *testing.T) (*testServer, *database.DB) {
	t.Helper()

	httpmock.Activate()
	t.Cleanup(httpmock.DeactivateAndReset)
	httpmock.RegisterResponder(http.MethodPost, "https://api.anthropic.com/v1/messages",
		httpmock.NewJsonResponderOrPanic(http.StatusOK, map[string]any{
			"model":   "claude-3-5-sonnet-20241022",
			"content": []map[string]string{{"type": "text", "text": anthropicReply}},
		}))

	db := dbtest.NewSQLite(t)
	localStorage, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	aiCfg := ai.NewConfig()
	aiCfg.Provider = ai.ProviderAnthropic
	aiCfg.AnthropicAPIKey = "sk-ant-test"
	provider, err := ai.NewProvider(aiCfg, nil)
	require.NoError(t, err)

	ledger := database.NewLedgerRepo(db)
	patternService := patterns.NewService(database.NewPatternRepo(db), patterns.Config{}, nil)
	budgets := budgetsync.NewService(ledger, time.Hour, nil, nil)

	app := &api.App{
		Storage:       localStorage,
		Pipeline:      processing.NewPipeline(nil, provider, patternService, database.NewOCRRepo(db), nil, nil),
		Reviews:       review.NewService(db, patternService, budgets, review.Config{}, nil, nil),
		Patterns:      patternService,
		Ledger:        ledger,
		Budgets:       budgets,
		MaxUploadSize: 10 << 20,
	}

	ts := httptest.NewServer(api.NewRouter(app))
	t.Cleanup(ts.Close)
	return &testServer{Server: ts, t: t}, db
}

// call goes through the server's own client, which httpmock does not intercept.
func (ts *testServer) call(req *http.Request, dst any) int {
	ts.t.Helper()
	resp, err := ts.Client().Do(req)
	require.NoError(ts.t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(ts.t, json.NewDecoder(resp.Body).Decode(&env))
	if dst != nil && env.Success {
		require.NoError(ts.t, json.Unmarshal(env.Data, dst))
	}
	return resp.StatusCode
}

func (ts *testServer) postJSON(path string, body any, dst any) int {
	ts.t.Helper()
	data, err := json.Marshal(body)
	require.NoError(ts.t, err)
	req, err := http.NewRequest(http.MethodPost, ts.URL+path, bytes.NewReader(data))
	require.NoError(ts.t, err)
	req.Header.Set("Content-Type", "application/json")
	return ts.call(req, dst)
}

func (ts *testServer) get(path string, dst any) int {
	ts.t.Helper()
	req, err := http.NewRequest(http.MethodGet, ts.URL+path, nil)
	require.NoError(ts.t, err)
	return ts.call(req, dst)
}

func (ts *testServer) upload(filename string, content []byte, dst any) int {
	ts.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("invoice", filename)
	require.NoError(ts.t, err)
	_, err = part.Write(content)
	require.NoError(ts.t, err)
	require.NoError(ts.t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/ocr/upload", &buf)
	require.NoError(ts.t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return ts.call(req, dst)
}

func scannedInvoice(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	img := imaging.New(320, 200, color.White)
	require.NoError(t, imaging.Encode(&buf, img, imaging.PNG))
	return buf.Bytes()
}

func TestInvoiceLifecycle(t *testing.T) {
	ts, db := setupTestServer(t)
	project := dbtest.SeedProject(t, db, "Dachausbau", "5000.00")

	var uploaded processing.Result
	require.Equal(t, http.StatusOK, ts.upload("scan.png", scannedInvoice(t), &uploaded))
	assert.Equal(t, ai.ProviderAnthropic, uploaded.Engine)
	assert.Equal(t, "claude-3-5-sonnet-20241022", uploaded.Model)
	assert.True(t, uploaded.PatternLearned)
	require.NotNil(t, uploaded.AIAnalysis)
	assert.Equal(t, "DEFINE", uploaded.AIAnalysis.SupplierName())
	assert.Equal(t, 1, httpmock.GetTotalCallCount())

	var pattern struct {
		SupplierName string `json:"supplierName"`
	}
	require.Equal(t, http.StatusOK, ts.get("/api/suppliers/patterns/DEFINE", &pattern))
	assert.Equal(t, "DEFINE", pattern.SupplierName)

	var created struct {
		SessionID string `json:"sessionId"`
	}
	require.Equal(t, http.StatusCreated,
		ts.postJSON("/api/ocr/review-sessions", map[string]string{"ocrProcessingId": uploaded.OCRProcessingID}, &created))

	var approved review.ApprovalResult
	require.Equal(t, http.StatusOK, ts.postJSON("/api/ocr/review-sessions/"+created.SessionID+"/approve", map[string]any{
		"projectAssignments": map[string]string{"0": project.ID},
		"supplierConfirmed":  true,
	}, &approved))
	assert.Equal(t, "2024-001", approved.Invoice.InvoiceNumber)
	assert.False(t, approved.Duplicates.HasWarnings())

	var charged struct {
		ConsumedBudget decimal.Decimal `json:"consumedBudget"`
	}
	require.Equal(t, http.StatusOK, ts.get("/api/projects/"+project.ID, &charged))
	assert.True(t, charged.ConsumedBudget.Equal(decimal.NewFromInt(100)), charged.ConsumedBudget.String())

	// the same invoice scanned again is flagged on approval but not blocked
	var second processing.Result
	require.Equal(t, http.StatusOK, ts.upload("scan-again.png", scannedInvoice(t), &second))
	assert.False(t, second.PatternLearned)
	assert.Empty(t, second.PatternUsed, "images have no text before extraction")

	require.Equal(t, http.StatusCreated,
		ts.postJSON("/api/ocr/review-sessions", map[string]string{"ocrProcessingId": second.OCRProcessingID}, &created))
	require.Equal(t, http.StatusOK, ts.postJSON("/api/ocr/review-sessions/"+created.SessionID+"/approve", map[string]any{
		"projectAssignments": map[string]string{"0": project.ID},
		"supplierConfirmed":  true,
	}, &approved))
	assert.Len(t, approved.Duplicates.Exact, 1)
}

func TestUploadWithoutProvider(t *testing.T) {
	ts := httptest.NewServer(api.NewRouter(&api.App{MaxUploadSize: 1 << 20}))
	defer ts.Close()

	resp, err := ts.Client().Post(ts.URL+"/api/ocr/upload", "multipart/form-data", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

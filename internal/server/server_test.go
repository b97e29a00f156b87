package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/payorders/constants"
	"github.com/joseph-ayodele/payorders/internal/common"
	"github.com/joseph-ayodele/payorders/internal/entity"
	"github.com/joseph-ayodele/payorders/internal/export"
	"github.com/joseph-ayodele/payorders/internal/extraction"
	"github.com/joseph-ayodele/payorders/internal/repository"
	"github.com/joseph-ayodele/payorders/internal/session"
)

const referenceYAML = `
companies:
  - canonical: "NT-830025448-GRUPO BOLÍVAR S.A."
creditors:
  - canonical: "NT-900555111-PAPELERIA CENTRAL S.A.S."
concepts:
  - canonical: "Papelería"
`

type stubExtractor struct {
	calls atomic.Int32
}

func (e *stubExtractor) Extract(context.Context, extraction.Request) (extraction.Result, error) {
	e.calls.Add(1)
	str := func(s string) *string { return &s }
	yes := true
	return extraction.Result{Fields: entity.ExtractedFields{
		BillingDate: str("31-12-2022"),
		Company:     str("830025448 GRUPO BOLIVAR"),
		Creditor:    str("PAPELERIA CENTRAL"),
		Concept:     str("Papelería"),
		BaseAmount:  "1.000.000",
		TaxPresent:  &yes,
		TaxAmount:   "190.000",
		TotalAmount: "1.190.000",
		Confidence:  constants.ConfidenceHigh,
	}}, nil
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return fmt.Errorf("connection refused") }

type testServer struct {
	t    *testing.T
	srv  *Server
	ext  *stubExtractor
	root string
}

func newTestServer(t *testing.T) *testServer {
	refs, err := repository.ParseReferenceYAML([]byte(referenceYAML))
	require.NoError(t, err)

	ext := &stubExtractor{}
	orders := repository.NewMemoryOrderRepository()
	registry := session.NewRegistry(session.Deps{Extractor: ext, Orders: orders, VATRatePct: 19}, refs, time.Hour)
	root := t.TempDir()

	srv := New(Options{
		Registry:     registry,
		Exporter:     export.NewService(orders, nil),
		DocumentRoot: root,
	})
	return &testServer{t: t, srv: srv, ext: ext, root: root}
}

func (ts *testServer) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(ts.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) upload(path, name string, data []byte, confirm bool) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("file", name)
	require.NoError(ts.t, err)
	_, err = fw.Write(data)
	require.NoError(ts.t, err)
	require.NoError(ts.t, w.WriteField("confirm", fmt.Sprint(confirm)))
	require.NoError(ts.t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	rec := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) createSession() string {
	rec := ts.do(http.MethodPost, "/sessions", nil)
	require.Equal(ts.t, http.StatusCreated, rec.Code, rec.Body.String())
	var snap session.Snapshot
	require.NoError(ts.t, json.Unmarshal(rec.Body.Bytes(), &snap))
	return snap.ID.String()
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func onePagePDF() []byte {
	objs := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>",
	}
	var b bytes.Buffer
	b.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, o := range objs {
		offsets[i] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", i+1, o)
	}
	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n0000000000 65535 f \n", len(objs)+1)
	for _, off := range offsets {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)
	return b.Bytes()
}

func TestSessionFlow(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createSession()
	base := "/sessions/" + id

	rec := ts.upload(base+"/document", "factura.pdf", onePagePDF(), true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	attached := decode[session.AttachResult](t, rec)
	assert.Equal(t, 1, attached.Pages)
	assert.Equal(t, "NT-830025448-GRUPO BOLÍVAR S.A.", attached.Form.Company)
	assert.Equal(t, int64(1190000), attached.Form.TotalAmount)

	rec = ts.do(http.MethodGet, base+"/discrepancies", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[discrepancyResponse](t, rec).Consistent)

	rec = ts.do(http.MethodPatch, base, map[string]any{"totalAmount": 1200000})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(http.MethodPost, base+"/submit", nil)
	require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	refusal := decode[submitRefusal](t, rec)
	require.Len(t, refusal.Discrepancies, 1)
	assert.Equal(t, entity.FieldTotalAmount, refusal.Discrepancies[0].Field)

	rec = ts.do(http.MethodPatch, base, map[string]any{"totalAmount": 1190000, "description": "Resmas"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(http.MethodPost, base+"/submit", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	order := decode[entity.PaymentOrder](t, rec)
	assert.Equal(t, "Resmas", order.Description)
	assert.Equal(t, "factura.pdf", order.DocumentName)

	rec = ts.do(http.MethodGet, "/orders/export?from=2022-12-01&to=2022-12-31", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxMIME, rec.Header().Get(echo.HeaderContentType))
	assert.Equal(t, "1", rec.Header().Get("X-Row-Count"))

	rec = ts.do(http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = ts.do(http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAttachDeclined(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createSession()

	rec := ts.upload("/sessions/"+id+"/document", "factura.pdf", onePagePDF(), false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[session.AttachResult](t, rec).Declined)
	assert.Equal(t, int32(0), ts.ext.calls.Load())
}

func TestAttachByPath(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createSession()
	require.NoError(t, os.WriteFile(filepath.Join(ts.root, "factura.pdf"), onePagePDF(), 0o644))

	rec := ts.do(http.MethodPost, "/sessions/"+id+"/document", map[string]any{"path": "../../factura.pdf", "confirm": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, int32(1), ts.ext.calls.Load())

	rec = ts.do(http.MethodPost, "/sessions/"+id+"/document", map[string]any{"path": "missing.pdf", "confirm": true})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRequestErrors(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createSession()

	testCases := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{name: "malformed session id", method: http.MethodGet, path: "/sessions/abc", status: http.StatusBadRequest, code: common.CodeInvalidInput},
		{name: "unknown session", method: http.MethodGet, path: "/sessions/6f1c1c1e-8d4b-4a57-9b51-2f3d0c1a7e10", status: http.StatusNotFound, code: common.CodeNotFound},
		{name: "bad billing date", method: http.MethodPatch, path: "/sessions/" + id, body: map[string]any{"billingDate": "31/12/2022"}, status: http.StatusBadRequest, code: common.CodeInvalidInput},
		{name: "negative amount", method: http.MethodPatch, path: "/sessions/" + id, body: map[string]any{"baseAmount": -1}, status: http.StatusBadRequest, code: common.CodeInvalidInput},
		{name: "missing path", method: http.MethodPost, path: "/sessions/" + id + "/document", body: map[string]any{"confirm": true}, status: http.StatusBadRequest, code: common.CodeInvalidInput},
		{name: "empty form", method: http.MethodPost, path: "/sessions/" + id + "/submit", status: http.StatusBadRequest, code: common.CodeIncomplete},
		{name: "bad export window", method: http.MethodGet, path: "/orders/export?from=2024-02-01&to=2024-01-01", status: http.StatusBadRequest, code: common.CodeInvalidInput},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := ts.do(tc.method, tc.path, tc.body)
			require.Equal(t, tc.status, rec.Code, rec.Body.String())
			body := decode[ErrorResponse](t, rec)
			assert.Equal(t, tc.code, body.Code)
			assert.NotEmpty(t, body.RequestID)
		})
	}
}

func TestUploadRejectsNonPDF(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createSession()

	rec := ts.upload("/sessions/"+id+"/document", "factura.pdf", []byte("not a pdf"), true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, int32(0), ts.ext.calls.Load())
}

func TestRequestIDIsEchoed(t *testing.T) {
	ts := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(echo.HeaderXRequestID, "req-42")
	rec := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "req-42", rec.Header().Get(echo.HeaderXRequestID))
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	ts.createSession()

	rec := ts.do(http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[healthStatus](t, rec).Sessions)

	ts.srv.db = failingPinger{}
	rec = ts.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "connection refused"))
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

package extraction

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/payorders/constants"
	"github.com/joseph-ayodele/payorders/internal/common"
	"github.com/joseph-ayodele/payorders/internal/consistency"
	"github.com/joseph-ayodele/payorders/internal/entity"
	"github.com/joseph-ayodele/payorders/internal/merge"
	"github.com/joseph-ayodele/payorders/internal/normalize"
)

func newTestServer(t *testing.T, status int, response string, seen *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		if seen != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(seen))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClientExtract(t *testing.T) {
	t.Run("should decode a lenient response", func(t *testing.T) {
		var seen map[string]any
		srv := newTestServer(t, http.StatusOK, `{
			"data": {
				"fecha": "31-12-2022",
				"empresa": "830025448 GRUPO BOLIVAR",
				"acreedor": "  Papeleria Central  ",
				"concepto": "Papelería",
				"descripcion": "",
				"base": "1.000.000",
				"iva": 190000,
				"hasIva": "si",
				"total": null,
				"extractedFields": ["billingDate", "company"],
				"confianza": "Alta",
				"pageCount": 2
			}
		}`, &seen)

		client, err := NewClient(Config{URL: srv.URL, APIKey: "secret", Lenient: true}, nil)
		require.NoError(t, err)

		res, err := client.Extract(context.Background(), Request{
			DocumentName: "factura.pdf",
			Content:      []byte("%PDF-1.4"),
			Concepts:     []string{"Papelería"},
		})
		require.NoError(t, err)

		f := res.Fields
		require.NotNil(t, f.BillingDate)
		assert.Equal(t, "31-12-2022", *f.BillingDate)
		assert.Equal(t, "Papeleria Central", *f.Creditor)
		assert.Nil(t, f.Description)
		assert.Nil(t, f.TotalAmount)
		assert.Equal(t, int64(1000000), normalize.Units(f.BaseAmount))
		assert.Equal(t, int64(190000), normalize.Units(f.TaxAmount))
		require.NotNil(t, f.TaxPresent)
		assert.True(t, *f.TaxPresent)
		assert.Equal(t, constants.ConfidenceHigh, f.Confidence)
		assert.Equal(t, []string{"billingDate", "company"}, f.Populated)
		assert.False(t, res.Cached)

		assert.Equal(t, "factura.pdf", seen["documentName"])
		assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("%PDF-1.4")), seen["content"])
	})

	t.Run("should reject a loose response in strict mode", func(t *testing.T) {
		srv := newTestServer(t, http.StatusOK, `{"iva": 190000}`, nil)
		client, err := NewClient(Config{URL: srv.URL, APIKey: "secret"}, nil)
		require.NoError(t, err)

		_, err = client.Extract(context.Background(), Request{DocumentName: "a.pdf"})
		assert.ErrorContains(t, err, "schema validation failed")
	})

	t.Run("should accept a strict response as is", func(t *testing.T) {
		srv := newTestServer(t, http.StatusOK, `{"taxAmount": "19.000", "confidence": "medium"}`, nil)
		client, err := NewClient(Config{URL: srv.URL, APIKey: "secret"}, nil)
		require.NoError(t, err)

		res, err := client.Extract(context.Background(), Request{DocumentName: "a.pdf"})
		require.NoError(t, err)
		assert.Equal(t, int64(19000), normalize.Units(res.Fields.TaxAmount))
		assert.Equal(t, constants.ConfidenceMedium, res.Fields.Confidence)
	})

	t.Run("should report a service failure once", func(t *testing.T) {
		calls := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		client, err := NewClient(Config{URL: srv.URL, Lenient: true}, nil)
		require.NoError(t, err)

		_, err = client.Extract(context.Background(), Request{DocumentName: "a.pdf"})
		assert.ErrorContains(t, err, "non-2xx status: 503")
		assert.True(t, IsRetryable(err))
		assert.Equal(t, 1, calls)
	})

	t.Run("should forward request and session ids", func(t *testing.T) {
		var reqID, sessionID string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID = r.Header.Get("X-Request-ID")
			sessionID = r.Header.Get("X-Session-ID")
			w.WriteHeader(http.StatusBadRequest)
		}))
		defer srv.Close()

		client, err := NewClient(Config{URL: srv.URL, Lenient: true}, nil)
		require.NoError(t, err)

		ctx := common.WithSessionID(common.WithRequestID(context.Background(), "req-7"), "sess-7")
		_, err = client.Extract(ctx, Request{DocumentName: "a.pdf"})

		var se *StatusError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, http.StatusBadRequest, se.Status)
		assert.False(t, IsRetryable(err))
		assert.Equal(t, "req-7", reqID)
		assert.Equal(t, "sess-7", sessionID)
	})

	t.Run("should require a url", func(t *testing.T) {
		_, err := NewClient(Config{}, nil)
		assert.Error(t, err)
	})
}

func TestDecodeFieldsNumericAmountsMerge(t *testing.T) {
	fields, err := DecodeFields([]byte(`{
		"baseAmount": 1500.125,
		"taxPresent": true,
		"taxAmount": 2.85e2,
		"totalAmount": 1785.125
	}`))
	require.NoError(t, err)

	_, isNumber := fields.BaseAmount.(json.Number)
	require.True(t, isNumber)

	res := merge.Merge(fields, entity.FormState{}, nil, nil)
	form := res.Patch.Apply(entity.FormState{})
	assert.Equal(t, int64(1500), form.BaseAmount)
	assert.True(t, form.HasTax)
	assert.Equal(t, int64(285), form.TaxAmount)
	assert.Equal(t, int64(1785), form.TotalAmount)

	assert.Empty(t, consistency.Check(fields, form))
}

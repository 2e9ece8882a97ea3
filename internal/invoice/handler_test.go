package invoice

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(f *lifecycleFixture) *httptest.Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := f.lifecycle.repo
	service := NewService(repo, nil, f.lifecycle, logger)
	handler := NewHandler(logger, service, nil)

	r := chi.NewRouter()
	r.Route("/sales-invoices", handler.MountRoutes)
	return httptest.NewServer(r)
}

func TestHandlerCreateDraft(t *testing.T) {
	f := newLifecycleFixture()
	srv := newTestServer(f)
	defer srv.Close()

	body := `{
		"customer": "Acme Retail",
		"company": "Atlas Trading Co",
		"debit_to": "Debtors - ATC",
		"items": [
			{"item_code": "WDG-100", "qty": 4, "uom": "Nos", "rate": 25, "income_account": "Sales - ATC"}
		]
	}`
	resp, err := http.Post(srv.URL+"/sales-invoices", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusCreated, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"number":"SINV-000100"`)
	assert.Contains(t, string(raw), `"grand_total":100`)
	assert.Contains(t, string(raw), `"docstatus":0`)
}

func TestHandlerCreateRejectsInvalidJSON(t *testing.T) {
	f := newLifecycleFixture()
	srv := newTestServer(f)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/sales-invoices", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandlerCreateRequiresItems(t *testing.T) {
	f := newLifecycleFixture()
	srv := newTestServer(f)
	defer srv.Close()

	body := `{"customer": "Acme Retail", "company": "Atlas Trading Co", "debit_to": "Debtors - ATC", "items": []}`
	resp, err := http.Post(srv.URL+"/sales-invoices", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandlerGetNotFound(t *testing.T) {
	f := newLifecycleFixture()
	srv := newTestServer(f)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/sales-invoices/SINV-999999")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandlerGet(t *testing.T) {
	f := newLifecycleFixture()
	f.store.invoices["SINV-000001"] = draftInvoice()
	srv := newTestServer(f)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/sales-invoices/SINV-000001")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"customer":"Acme Retail"`)
}

func TestHandlerSubmitRequiresUserHeader(t *testing.T) {
	f := newLifecycleFixture()
	f.store.invoices["SINV-000001"] = draftInvoice()
	srv := newTestServer(f)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/sales-invoices/SINV-000001/submit", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHandlerSubmit(t *testing.T) {
	f := newLifecycleFixture()
	f.store.invoices["SINV-000001"] = draftInvoice()
	srv := newTestServer(f)
	defer srv.Close()

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/sales-invoices/SINV-000001/submit", nil)
	require.NoError(t, err)
	req.Header.Set("X-User-ID", "1")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"docstatus":1`)
	require.Len(t, f.ledger.posted, 1)
}

func TestHandlerSubmitMapsWarehouseDenialTo403(t *testing.T) {
	f := newLifecycleFixture()
	inv := draftInvoice()
	inv.UpdateStock = true
	inv.Items[0].Warehouse = "North Depot - Normal"
	f.store.invoices["SINV-000001"] = inv
	srv := newTestServer(f)
	defer srv.Close()

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/sales-invoices/SINV-000001/submit", nil)
	require.NoError(t, err)
	req.Header.Set("X-User-ID", "1")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestHandlerCancelDraftConflicts(t *testing.T) {
	f := newLifecycleFixture()
	f.store.invoices["SINV-000001"] = draftInvoice()
	srv := newTestServer(f)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/sales-invoices/SINV-000001/cancel", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestHandlerListRejectsBadDocstatus(t *testing.T) {
	f := newLifecycleFixture()
	srv := newTestServer(f)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/sales-invoices?docstatus=7")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

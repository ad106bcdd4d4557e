package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ledgermirror/ledgerd/internal/common"
	"github.com/ledgermirror/ledgerd/internal/service"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(server.URL, "test-token")
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return client
}

func TestNewClient_RequiresConfig(t *testing.T) {
	if _, err := NewClient("", "token"); !errors.Is(err, common.ErrMissingConfig) {
		t.Errorf("missing base URL: got %v, want ErrMissingConfig", err)
	}
	if _, err := NewClient("http://localhost", ""); !errors.Is(err, common.ErrMissingConfig) {
		t.Errorf("missing token: got %v, want ErrMissingConfig", err)
	}
}

func TestListTransactions_DecodesPageAndRetainsPayload(t *testing.T) {
	var gotAuth, gotQuery string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`{
			"nextCursor": "p2",
			"asOf": "2024-03-01T00:00:00Z",
			"transactions": [
				{
					"id": "t1",
					"postedOn": "2024-03-01",
					"accountId": "acc1",
					"payee": "Blue Bottle Coffee",
					"amount": -4.5,
					"state": "POSTED",
					"coa": {"type": "CATEGORY", "id": "7"},
					"extraServerField": "kept verbatim"
				}
			]
		}`))
	}))

	batch, err := client.ListTransactions(context.Background(), service.ListOptions{ModifiedSince: "w1"})
	if err != nil {
		t.Fatalf("list transactions failed: %v", err)
	}

	if gotAuth != "Bearer test-token" {
		t.Errorf("Authorization header = %q, want Bearer test-token", gotAuth)
	}
	if gotQuery != "modified-since=w1" {
		t.Errorf("query = %q, want modified-since=w1", gotQuery)
	}

	if batch.NextCursor != "p2" || batch.AsOf != "2024-03-01T00:00:00Z" {
		t.Errorf("page metadata = %q/%q", batch.NextCursor, batch.AsOf)
	}
	if len(batch.Transactions) != 1 {
		t.Fatalf("got %d transactions, want 1", len(batch.Transactions))
	}

	txn := batch.Transactions[0]
	if txn.ID != "t1" || txn.Payee != "Blue Bottle Coffee" {
		t.Errorf("unexpected transaction: %+v", txn)
	}
	if !txn.PostedOn.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("posted on = %v", txn.PostedOn)
	}
	if txn.Coa == nil || txn.Coa.ID != "7" {
		t.Errorf("classification = %+v", txn.Coa)
	}

	// Fields this client does not model survive in the raw payload.
	var payload map[string]any
	if err := json.Unmarshal(txn.Payload, &payload); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}
	if payload["extraServerField"] != "kept verbatim" {
		t.Errorf("raw payload lost server fields: %v", payload)
	}
}

func TestListTransactions_StartDateQuery(t *testing.T) {
	var gotQuery string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`{"transactions": []}`))
	}))

	start := time.Date(2020, 1, 15, 0, 0, 0, 0, time.UTC)
	if _, err := client.ListTransactions(context.Background(), service.ListOptions{Start: &start}); err != nil {
		t.Fatalf("list transactions failed: %v", err)
	}
	if gotQuery != "start-date=2020-01-15" {
		t.Errorf("query = %q, want start-date=2020-01-15", gotQuery)
	}
}

func TestGetJSON_NonOKStatusReturnsUpstreamError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("maintenance window"))
	}))

	_, err := client.ListTransactions(context.Background(), service.ListOptions{})
	if err == nil {
		t.Fatal("expected error for 503 response")
	}

	var upstreamErr *common.UpstreamError
	if !errors.As(err, &upstreamErr) {
		t.Fatalf("expected UpstreamError, got %T: %v", err, err)
	}
	if upstreamErr.Status != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", upstreamErr.Status)
	}
	if upstreamErr.Body != "maintenance window" {
		t.Errorf("body = %q", upstreamErr.Body)
	}
	if !upstreamErr.Retryable() {
		t.Error("503 should be retryable")
	}
	if !common.IsRetryable(err) {
		t.Error("IsRetryable should report true for a 503")
	}
}

func TestUpdateTransaction_SubmitsMergedRecord(t *testing.T) {
	var gotMethod, gotPath string
	var gotBody map[string]any
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))

	payload := map[string]any{
		"id":    "t1",
		"payee": "Blue Bottle Coffee",
		"coa":   map[string]any{"type": "CATEGORY", "id": "7"},
	}
	if err := client.UpdateTransaction(context.Background(), "t1", payload); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	if gotMethod != http.MethodPut {
		t.Errorf("method = %s, want PUT", gotMethod)
	}
	if gotPath != "/transactions/t1" {
		t.Errorf("path = %s, want /transactions/t1", gotPath)
	}
	if gotBody["payee"] != "Blue Bottle Coffee" {
		t.Errorf("body = %v", gotBody)
	}
}

func TestUpdateTransaction_ErrorStatus(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte("coa.id is required"))
	}))

	err := client.UpdateTransaction(context.Background(), "t1", map[string]any{"id": "t1"})
	if err == nil {
		t.Fatal("expected error for 422 response")
	}

	var upstreamErr *common.UpstreamError
	if !errors.As(err, &upstreamErr) {
		t.Fatalf("expected UpstreamError, got %T", err)
	}
	if upstreamErr.Status != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", upstreamErr.Status)
	}
	if upstreamErr.Retryable() {
		t.Error("422 should not be retryable")
	}
}

func TestEarliestTransactionDate(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ledger" {
			t.Errorf("path = %s, want /ledger", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"firstTransactionDate": "2019-06-01"}`))
	}))

	date, err := client.EarliestTransactionDate(context.Background())
	if err != nil {
		t.Fatalf("earliest date failed: %v", err)
	}
	if !date.Equal(time.Date(2019, 6, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("date = %v, want 2019-06-01", date)
	}
}

func TestListCategories_DecodesPage(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"nextCursor": "",
			"asOf": "c1",
			"categories": [
				{"id": "7", "name": "Coffee Shops", "type": "EXPENSE", "canEdit": true}
			]
		}`))
	}))

	batch, err := client.ListCategories(context.Background(), "")
	if err != nil {
		t.Fatalf("list categories failed: %v", err)
	}
	if len(batch.Categories) != 1 {
		t.Fatalf("got %d categories, want 1", len(batch.Categories))
	}
	cat := batch.Categories[0]
	if cat.ID != "7" || cat.Name != "Coffee Shops" || !cat.CanEdit {
		t.Errorf("unexpected category: %+v", cat)
	}
}

func TestListTags_DecodesPage(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"asOf": "g1",
			"tags": [{"id": "t1", "name": "vacation", "useCount": 4}]
		}`))
	}))

	batch, err := client.ListTags(context.Background(), "")
	if err != nil {
		t.Fatalf("list tags failed: %v", err)
	}
	if len(batch.Tags) != 1 || batch.Tags[0].UseCount != 4 {
		t.Errorf("unexpected tags: %+v", batch.Tags)
	}
}

package storefront

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/luismarin-dev/ordena-backend/pkg/config"
)

func testConfig(baseURL string) config.StorefrontConfig {
	return config.StorefrontConfig{
		BaseURL:    baseURL,
		MerchantID: "m-100",
		TokenURL:   baseURL + "/token",
		RetryBase:  time.Millisecond,
		RetryMax:   3,
	}
}

func newTestClient(t *testing.T, server *httptest.Server) *Client {
	t.Helper()
	client, err := NewClient(testConfig(server.URL), StaticTokenSource("tok-1"), nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func TestListOrdersQueryAndAuth(t *testing.T) {
	var gotQuery string
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"id": 7, "number": "A-7", "created_at": "2026-01-02T03:04:05Z"},
			},
		})
	}))
	defer server.Close()

	orders, err := newTestClient(t, server).ListOrders(context.Background(), "pending", 25)
	if err != nil {
		t.Fatalf("ListOrders: %v", err)
	}
	if len(orders) != 1 || orders[0].ID != 7 {
		t.Fatalf("unexpected orders: %+v", orders)
	}
	if gotAuth != "Bearer tok-1" {
		t.Fatalf("unexpected auth header %q", gotAuth)
	}

	query := "per_page=25&sort_by=created_at-asc&status=pending"
	if gotQuery != query {
		t.Fatalf("query = %q, want %q", gotQuery, query)
	}
}

func TestListOrdersRetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": []map[string]any{{"id": 1}}})
	}))
	defer server.Close()

	orders, err := newTestClient(t, server).ListOrders(context.Background(), "pending", 10)
	if err != nil {
		t.Fatalf("ListOrders: %v", err)
	}
	if len(orders) != 1 {
		t.Fatalf("expected one order, got %d", len(orders))
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}

func TestListOrdersGivesUpAfterMaxRetries(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newTestClient(t, server).ListOrders(context.Background(), "pending", 10)
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsRetryable(err) {
		t.Fatalf("expected retryable error, got %v", err)
	}
	// Initial attempt plus three retries.
	if got := atomic.LoadInt32(&calls); got != 4 {
		t.Fatalf("expected 4 attempts, got %d", got)
	}
}

func TestGetOrderDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := newTestClient(t, server).GetOrder(context.Background(), "55")
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsNotFound(err) {
		t.Fatalf("expected not found error, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected a single attempt, got %d", got)
	}
}

func TestUpdateOrderStatusPostsStatusIDWithoutRetry(t *testing.T) {
	var calls int32
	var gotPath string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	err := newTestClient(t, server).UpdateOrderStatus(context.Background(), "42", 9)
	if err == nil {
		t.Fatal("expected error")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("status updates must not retry, got %d attempts", got)
	}
	if gotPath != "/orders/42/status" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotBody["status_id"] != float64(9) {
		t.Fatalf("unexpected body %v", gotBody)
	}
}

type fakeStatusLister struct {
	statuses []OrderStatus
	calls    int
	err      error
}

func (f *fakeStatusLister) MerchantID() string { return "m-100" }

func (f *fakeStatusLister) ListStatuses(_ context.Context) ([]OrderStatus, error) {
	f.calls++
	return f.statuses, f.err
}

func TestStatusCacheResolvesSlug(t *testing.T) {
	lister := &fakeStatusLister{statuses: []OrderStatus{
		{ID: 3, Slug: "pending"},
		{ID: 9, Slug: "Preparing"},
	}}
	cache := NewStatusCache(lister, nil, time.Hour, nil)

	id, err := cache.ResolveStatusID(context.Background(), "preparing")
	if err != nil {
		t.Fatalf("ResolveStatusID: %v", err)
	}
	if id != 9 {
		t.Fatalf("expected status id 9, got %d", id)
	}
}

func TestStatusCacheUnknownSlug(t *testing.T) {
	lister := &fakeStatusLister{statuses: []OrderStatus{{ID: 3, Slug: "pending"}}}
	cache := NewStatusCache(lister, nil, time.Hour, nil)

	if _, err := cache.ResolveStatusID(context.Background(), "vanished"); err == nil {
		t.Fatal("expected error for unknown slug")
	}
}

package shop

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shoptools/shoppush/internal/config"
)

func newTestServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*Client, *httptest.Server) {
	t.Helper()

	var tokenFetches atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc(pathAccessToken, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("grant_type") != "client_credential" {
			t.Errorf("Unexpected grant_type %q", r.URL.Query().Get("grant_type"))
		}
		n := tokenFetches.Add(1)
		fmt.Fprintf(w, `{"access_token": "tok-%d", "expires_in": 7200}`, n)
	})
	mux.HandleFunc("/", handler)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client := NewClient(config.ShopConfig{
		AppID:     "wx-test",
		AppSecret: "secret",
		BaseURL:   server.URL,
		Timeout:   5 * time.Second,
	})
	return client, server
}

func TestAddProductSuccess(t *testing.T) {
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != pathCreateProduct {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("access_token") == "" {
			t.Error("Expected access_token query parameter")
		}

		var req ProductRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("Bad request body: %v", err)
		}
		if req.Title != "不锈钢保温杯" || len(req.Cats) != 3 {
			t.Errorf("Unexpected request: %+v", req)
		}

		fmt.Fprint(w, `{"errcode": 0, "errmsg": "ok", "product_id": "10000123"}`)
	})

	result, err := client.AddProduct(context.Background(), &ProductRequest{
		Title: "不锈钢保温杯",
		Cats:  []Cat{{CatID: "1"}, {CatID: "11"}, {CatID: "111"}},
	})
	if err != nil {
		t.Fatalf("AddProduct failed: %v", err)
	}
	if result.ProductID != "10000123" {
		t.Errorf("Expected product id 10000123, got %s", result.ProductID)
	}
}

func TestAddProductErrcode(t *testing.T) {
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"errcode": 45009, "errmsg": "reach max api daily quota limit"}`)
	})

	_, err := client.AddProduct(context.Background(), &ProductRequest{Title: "保温杯"})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected *APIError, got %v", err)
	}
	if apiErr.Code != 45009 {
		t.Errorf("Expected errcode 45009, got %d", apiErr.Code)
	}
	if Classify(err) != ClassRateLimited {
		t.Errorf("Expected rate limited classification")
	}
}

func TestAddProductHTTPError(t *testing.T) {
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	})

	_, err := client.AddProduct(context.Background(), &ProductRequest{Title: "保温杯"})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected *APIError, got %v", err)
	}
	if apiErr.HTTPStatus != http.StatusBadGateway {
		t.Errorf("Expected status 502, got %d", apiErr.HTTPStatus)
	}
}

func TestFetchCategoriesFlat(t *testing.T) {
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != pathAllCategories {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"errcode": 0, "cats": [
			{"cat_id": 1, "f_cat_id": 0, "level": 1, "name": "家居用品"},
			{"cat_id": 11, "f_cat_id": 1, "level": 2, "name": "厨房用具"},
			{"cat_id": 111, "f_cat_id": 11, "level": 3, "name": "保温杯"}
		]}`)
	})

	entries, err := client.FetchCategories(context.Background())
	if err != nil {
		t.Fatalf("FetchCategories failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(entries))
	}
	if entries[0].ID != "1" || entries[0].ParentID != "" || entries[0].Level != 1 {
		t.Errorf("Unexpected root entry: %+v", entries[0])
	}
	if entries[2].ID != "111" || entries[2].ParentID != "11" || entries[2].Label != "保温杯" {
		t.Errorf("Unexpected leaf entry: %+v", entries[2])
	}
}

func TestFetchCategoriesNested(t *testing.T) {
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"errcode": 0, "cats": [
			{"cat_id": "1", "f_cat_id": "0", "level": 1, "name": "家居用品", "children": [
				{"cat_id": "11", "f_cat_id": "1", "level": 2, "name": "厨房用具", "children": [
					{"cat_id": "111", "f_cat_id": "11", "level": 3, "name": "保温杯"}
				]}
			]}
		]}`)
	})

	entries, err := client.FetchCategories(context.Background())
	if err != nil {
		t.Fatalf("FetchCategories failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("Expected nested tree flattened to 3 entries, got %d", len(entries))
	}
	if entries[1].ID != "11" || entries[1].ParentID != "1" {
		t.Errorf("Unexpected entry: %+v", entries[1])
	}
}

func TestTokenReusedAcrossRequests(t *testing.T) {
	var tokens []string
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		tokens = append(tokens, r.URL.Query().Get("access_token"))
		fmt.Fprint(w, `{"errcode": 0, "product_id": "1"}`)
	})

	for i := 0; i < 3; i++ {
		if _, err := client.AddProduct(context.Background(), &ProductRequest{Title: "保温杯"}); err != nil {
			t.Fatal(err)
		}
	}

	if len(tokens) != 3 {
		t.Fatalf("Expected 3 requests, got %d", len(tokens))
	}
	for _, token := range tokens {
		if token != "tok-1" {
			t.Errorf("Expected cached token tok-1, got %s", token)
		}
	}
}

func TestRefreshCredentials(t *testing.T) {
	var tokens []string
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		tokens = append(tokens, r.URL.Query().Get("access_token"))
		fmt.Fprint(w, `{"errcode": 0, "product_id": "1"}`)
	})

	if _, err := client.AddProduct(context.Background(), &ProductRequest{Title: "保温杯"}); err != nil {
		t.Fatal(err)
	}
	if err := client.RefreshCredentials(context.Background()); err != nil {
		t.Fatalf("RefreshCredentials failed: %v", err)
	}
	if _, err := client.AddProduct(context.Background(), &ProductRequest{Title: "保温杯"}); err != nil {
		t.Fatal(err)
	}

	if len(tokens) != 2 || tokens[0] == tokens[1] {
		t.Errorf("Expected a new token after refresh, got %v", tokens)
	}
}

func TestTokenEndpointError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(pathAccessToken, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"errcode": 40001, "errmsg": "invalid appsecret"}`)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client := NewClient(config.ShopConfig{
		AppID:     "wx-test",
		AppSecret: "wrong",
		BaseURL:   server.URL,
		Timeout:   5 * time.Second,
	})

	_, err := client.AddProduct(context.Background(), &ProductRequest{Title: "保温杯"})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected *APIError, got %v", err)
	}
	if apiErr.Code != 40001 {
		t.Errorf("Expected errcode 40001, got %d", apiErr.Code)
	}
}

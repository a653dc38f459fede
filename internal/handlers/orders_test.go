package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"merchant-dashboard/internal/models"
)

func TestOrdersHandler_List(t *testing.T) {
	ts := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	archive := &stubArchive{orders: []models.OrderRecord{
		models.NewOrderRecord("ord-1", "cust-1", "Latte", 4.5, 9.0, ts),
	}}
	h := NewOrdersHandler(archive, newHandlerTestLogger())

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/orders?limit=10&offset=5", nil)

	h.List(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	var resp struct {
		Orders []models.OrderRecord `json:"orders"`
		Limit  int                  `json:"limit"`
		Offset int                  `json:"offset"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if len(resp.Orders) != 1 || resp.Limit != 10 || resp.Offset != 5 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestOrdersHandler_List_Defaults(t *testing.T) {
	h := NewOrdersHandler(&stubArchive{}, newHandlerTestLogger())

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)

	h.List(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	var resp struct {
		Orders []models.OrderRecord `json:"orders"`
		Limit  int                  `json:"limit"`
		Offset int                  `json:"offset"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if resp.Orders == nil {
		t.Fatalf("orders must be an empty array, not null")
	}
	if resp.Limit != defaultOrdersLimit || resp.Offset != 0 {
		t.Fatalf("unexpected defaults: %+v", resp)
	}
}

func TestOrdersHandler_List_CapsLimit(t *testing.T) {
	h := NewOrdersHandler(&stubArchive{}, newHandlerTestLogger())

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/orders?limit=99999", nil)

	h.List(rr, req)

	var resp struct {
		Limit int `json:"limit"`
	}
	_ = json.NewDecoder(rr.Body).Decode(&resp)
	if resp.Limit != maxOrdersLimit {
		t.Fatalf("expected limit capped at %d, got %d", maxOrdersLimit, resp.Limit)
	}
}

func TestOrdersHandler_List_ArchiveError(t *testing.T) {
	h := NewOrdersHandler(&stubArchive{err: errors.New("pg down")}, newHandlerTestLogger())

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)

	h.List(rr, req)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
}

func TestOrdersHandler_List_MethodNotAllowed(t *testing.T) {
	h := NewOrdersHandler(&stubArchive{}, newHandlerTestLogger())

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/orders", nil)

	h.List(rr, req)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}
}

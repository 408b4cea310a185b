package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	invoicingapp "github.com/FelixFunesFS/train-catering-creations-sub005/internal/application/invoicing"
	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/domain/shared"
	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/interfaces/http/dto"
	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newInvoiceRouter(svc *MockInvoiceService) *gin.Engine {
	h := NewInvoiceHandler(svc)
	router := gin.New()
	router.Use(middleware.RequestID())
	api := router.Group("/api/v1")
	api.POST("/invoices", h.Create)
	api.GET("/invoices", h.List)
	api.GET("/invoices/:id", h.Get)
	api.GET("/invoices/:id/milestones", h.Milestones)
	api.PUT("/invoices/:id/notes", h.UpdateNotes)
	api.POST("/invoices/:id/recalculate", h.Recalculate)
	return router
}

func doRequest(router http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestInvoiceHandlerGet(t *testing.T) {
	id := uuid.New()

	t.Run("returns the invoice", func(t *testing.T) {
		svc := new(MockInvoiceService)
		svc.On("GetInvoice", mock.Anything, id).Return(&invoicingapp.InvoiceResponse{
			ID:         id,
			TotalCents: 162000,
			Version:    3,
		}, nil)

		w := doRequest(newInvoiceRouter(svc), http.MethodGet, "/api/v1/invoices/"+id.String(), "")

		assert.Equal(t, http.StatusOK, w.Code)
		resp := decodeResponse(t, w)
		data := resp.Data.(map[string]any)
		assert.Equal(t, id.String(), data["id"])
		assert.Equal(t, float64(162000), data["total_cents"])
		assert.Equal(t, float64(3), data["version"])
		svc.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		svc := new(MockInvoiceService)
		svc.On("GetInvoice", mock.Anything, id).Return(nil, shared.ErrNotFound)

		w := doRequest(newInvoiceRouter(svc), http.MethodGet, "/api/v1/invoices/"+id.String(), "")

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, dto.ErrCodeNotFound, decodeResponse(t, w).Error.Code)
	})

	t.Run("invalid id never reaches the service", func(t *testing.T) {
		svc := new(MockInvoiceService)

		w := doRequest(newInvoiceRouter(svc), http.MethodGet, "/api/v1/invoices/abc", "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "GetInvoice", mock.Anything, mock.Anything)
	})
}

func TestInvoiceHandlerList(t *testing.T) {
	svc := new(MockInvoiceService)
	svc.On("ListInvoices", mock.Anything, invoicingapp.ListInvoicesRequest{Search: "smith", Page: 2, PageSize: 5}).
		Return([]invoicingapp.InvoiceListItemResponse{{InvoiceNumber: "INV-7"}}, int64(11), nil)

	w := doRequest(newInvoiceRouter(svc), http.MethodGet, "/api/v1/invoices?search=smith&page=2&page_size=5", "")

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(11), resp.Meta.Total)
	assert.Equal(t, 2, resp.Meta.Page)
	assert.Equal(t, 3, resp.Meta.TotalPages)
	svc.AssertExpectations(t)
}

func TestInvoiceHandlerListRejectsBadPageSize(t *testing.T) {
	svc := new(MockInvoiceService)

	w := doRequest(newInvoiceRouter(svc), http.MethodGet, "/api/v1/invoices?page_size=500", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrCodeValidation, decodeResponse(t, w).Error.Code)
}

func TestInvoiceHandlerCreate(t *testing.T) {
	svc := new(MockInvoiceService)
	svc.On("CreateInvoice", mock.Anything, mock.MatchedBy(func(req invoicingapp.CreateInvoiceRequest) bool {
		return req.InvoiceNumber == "INV-1" && req.CustomerName == "Ada" && req.GovernmentExempt
	})).Return(&invoicingapp.InvoiceResponse{InvoiceNumber: "INV-1"}, nil)

	w := doRequest(newInvoiceRouter(svc), http.MethodPost, "/api/v1/invoices",
		`{"invoice_number":"INV-1","customer_name":"Ada","government_exempt":true}`)

	assert.Equal(t, http.StatusCreated, w.Code)
	svc.AssertExpectations(t)
}

func TestInvoiceHandlerUpdateNotes(t *testing.T) {
	id := uuid.New()

	t.Run("passes the expected version through", func(t *testing.T) {
		svc := new(MockInvoiceService)
		svc.On("UpdateNotes", mock.Anything, id, mock.MatchedBy(func(req invoicingapp.UpdateNotesRequest) bool {
			return req.CustomerNotes == "Gate code 1234" && req.AdminNotes == "" &&
				req.ExpectedVersion != nil && *req.ExpectedVersion == 4
		})).Return(&invoicingapp.InvoiceResponse{ID: id, Version: 5}, nil)

		w := doRequest(newInvoiceRouter(svc), http.MethodPut, "/api/v1/invoices/"+id.String()+"/notes",
			`{"customer_notes":"Gate code 1234","admin_notes":"","expected_version":4}`)

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("stale version is a conflict", func(t *testing.T) {
		svc := new(MockInvoiceService)
		svc.On("UpdateNotes", mock.Anything, id, mock.Anything).Return(nil, shared.ErrConcurrencyConflict)

		w := doRequest(newInvoiceRouter(svc), http.MethodPut, "/api/v1/invoices/"+id.String()+"/notes",
			`{"customer_notes":"x","expected_version":1}`)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, dto.ErrCodeConcurrencyConflict, decodeResponse(t, w).Error.Code)
	})

	t.Run("notes over the size limit", func(t *testing.T) {
		svc := new(MockInvoiceService)
		long := strings.Repeat("n", 10001)

		w := doRequest(newInvoiceRouter(svc), http.MethodPut, "/api/v1/invoices/"+id.String()+"/notes",
			`{"customer_notes":"`+long+`"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "UpdateNotes", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestInvoiceHandlerRecalculate(t *testing.T) {
	id := uuid.New()
	svc := new(MockInvoiceService)
	svc.On("RecalculateTotals", mock.Anything, id).Return(&invoicingapp.TotalsResponse{
		InvoiceID:     id,
		SubtotalCents: 150000,
		TaxCents:      12000,
		TotalCents:    162000,
		Changed:       true,
	}, nil)

	w := doRequest(newInvoiceRouter(svc), http.MethodPost, "/api/v1/invoices/"+id.String()+"/recalculate", "")

	require.Equal(t, http.StatusOK, w.Code)
	data := decodeResponse(t, w).Data.(map[string]any)
	assert.Equal(t, float64(162000), data["total_cents"])
	assert.Equal(t, true, data["changed"])
}

func TestInvoiceHandlerMilestones(t *testing.T) {
	id := uuid.New()
	svc := new(MockInvoiceService)
	svc.On("GetMilestones", mock.Anything, id).Return([]invoicingapp.MilestoneResponse{
		{Type: "deposit", AmountCents: 40500, SortOrder: 0},
		{Type: "final", AmountCents: 121500, SortOrder: 1},
	}, nil)

	w := doRequest(newInvoiceRouter(svc), http.MethodGet, "/api/v1/invoices/"+id.String()+"/milestones", "")

	require.Equal(t, http.StatusOK, w.Code)
	data := decodeResponse(t, w).Data.([]any)
	require.Len(t, data, 2)
	assert.Equal(t, "deposit", data[0].(map[string]any)["type"])
}

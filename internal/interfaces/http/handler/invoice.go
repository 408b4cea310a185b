package handler

import (
	"context"

	invoicingapp "github.com/FelixFunesFS/train-catering-creations-sub005/internal/application/invoicing"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// InvoiceService is the invoice surface the HTTP API needs
type InvoiceService interface {
	CreateInvoice(ctx context.Context, req invoicingapp.CreateInvoiceRequest) (*invoicingapp.InvoiceResponse, error)
	GetInvoice(ctx context.Context, id uuid.UUID) (*invoicingapp.InvoiceResponse, error)
	ListInvoices(ctx context.Context, req invoicingapp.ListInvoicesRequest) ([]invoicingapp.InvoiceListItemResponse, int64, error)
	GetMilestones(ctx context.Context, id uuid.UUID) ([]invoicingapp.MilestoneResponse, error)
	UpdateNotes(ctx context.Context, id uuid.UUID, req invoicingapp.UpdateNotesRequest) (*invoicingapp.InvoiceResponse, error)
	RecalculateTotals(ctx context.Context, id uuid.UUID) (*invoicingapp.TotalsResponse, error)
}

// InvoiceHandler handles invoice API endpoints
type InvoiceHandler struct {
	BaseHandler
	invoiceService InvoiceService
}

// NewInvoiceHandler creates a new InvoiceHandler
func NewInvoiceHandler(invoiceService InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{invoiceService: invoiceService}
}

// Create godoc
// @Summary      Create an invoice
// @Description  Open a draft invoice with the standard payment schedule
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        request body invoicingapp.CreateInvoiceRequest true "Invoice creation request"
// @Success      201 {object} dto.Response{data=invoicingapp.InvoiceResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /api/v1/invoices [post]
func (h *InvoiceHandler) Create(c *gin.Context) {
	var req invoicingapp.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	invoice, err := h.invoiceService.CreateInvoice(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, invoice)
}

// List godoc
// @Summary      List invoices
// @Description  Page through invoices, optionally filtered by number or customer
// @Tags         invoices
// @Produce      json
// @Param        search    query string false "Invoice number or customer name"
// @Param        page      query int    false "Page number" minimum(1)
// @Param        page_size query int    false "Page size" minimum(1) maximum(100)
// @Param        order_by  query string false "Sort column" Enums(created_at, updated_at, invoice_number, customer_name, event_date, status, total_cents)
// @Param        order_dir query string false "Sort direction" Enums(asc, desc)
// @Success      200 {object} dto.Response{data=[]invoicingapp.InvoiceListItemResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /api/v1/invoices [get]
func (h *InvoiceHandler) List(c *gin.Context) {
	var req invoicingapp.ListInvoicesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindError(c, err)
		return
	}

	invoices, total, err := h.invoiceService.ListInvoices(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	filter := req.ToFilter()
	h.SuccessWithMeta(c, invoices, total, filter.Page, filter.PageSize)
}

// Get godoc
// @Summary      Get an invoice
// @Description  Get one invoice with its totals and payment milestones
// @Tags         invoices
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Success      200 {object} dto.Response{data=invoicingapp.InvoiceResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /api/v1/invoices/{id} [get]
func (h *InvoiceHandler) Get(c *gin.Context) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	invoice, err := h.invoiceService.GetInvoice(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, invoice)
}

// Milestones godoc
// @Summary      Get payment milestones
// @Description  Get the invoice's payment schedule in order
// @Tags         invoices
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Success      200 {object} dto.Response{data=[]invoicingapp.MilestoneResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /api/v1/invoices/{id}/milestones [get]
func (h *InvoiceHandler) Milestones(c *gin.Context) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	milestones, err := h.invoiceService.GetMilestones(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, milestones)
}

// UpdateNotes godoc
// @Summary      Update invoice notes
// @Description  Replace customer and admin notes. A stale expected_version answers 409 ERR_CONCURRENCY_CONFLICT.
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Param        request body invoicingapp.UpdateNotesRequest true "Notes update request"
// @Success      200 {object} dto.Response{data=invoicingapp.InvoiceResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /api/v1/invoices/{id}/notes [put]
func (h *InvoiceHandler) UpdateNotes(c *gin.Context) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req invoicingapp.UpdateNotesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	invoice, err := h.invoiceService.UpdateNotes(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, invoice)
}

// Recalculate godoc
// @Summary      Recalculate invoice totals
// @Description  Recompute subtotal, discount, tax, total and milestone amounts from the persisted line items. Idempotent.
// @Tags         invoices
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Success      200 {object} dto.Response{data=invoicingapp.TotalsResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /api/v1/invoices/{id}/recalculate [post]
func (h *InvoiceHandler) Recalculate(c *gin.Context) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	totals, err := h.invoiceService.RecalculateTotals(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, totals)
}

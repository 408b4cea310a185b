package handler

import (
	"context"

	invoicingapp "github.com/FelixFunesFS/train-catering-creations-sub005/internal/application/invoicing"
	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/domain/invoicing"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// LineItemService is the line item surface the HTTP API needs
type LineItemService interface {
	Fetch(ctx context.Context, invoiceID uuid.UUID) ([]invoicing.LineItem, error)
	Create(ctx context.Context, invoiceID uuid.UUID, inputs []invoicing.LineItemInput) ([]invoicing.LineItem, error)
	Update(ctx context.Context, itemID uuid.UUID, patch invoicing.LineItemPatch) (*invoicing.LineItem, error)
	Delete(ctx context.Context, itemID uuid.UUID) error
	ReplaceAll(ctx context.Context, invoiceID uuid.UUID, inputs []invoicing.LineItemInput) ([]invoicing.LineItem, error)
}

// LineItemHandler handles line item API endpoints. Every item in a
// response carries its category origin (auto or custom).
type LineItemHandler struct {
	BaseHandler
	lineItemService LineItemService
}

// NewLineItemHandler creates a new LineItemHandler
func NewLineItemHandler(lineItemService LineItemService) *LineItemHandler {
	return &LineItemHandler{lineItemService: lineItemService}
}

// List godoc
// @Summary      List line items
// @Description  Get the invoice's line items in display order. Each item carries its category origin (auto or custom).
// @Tags         line-items
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Success      200 {object} dto.Response{data=[]invoicingapp.LineItemResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /api/v1/invoices/{id}/line-items [get]
func (h *LineItemHandler) List(c *gin.Context) {
	invoiceID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	items, err := h.lineItemService.Fetch(c.Request.Context(), invoiceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, invoicingapp.ToLineItemResponses(items))
}

// Create godoc
// @Summary      Add line items
// @Description  Add one or more line items to an invoice
// @Tags         line-items
// @Accept       json
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Param        Idempotency-Key header string false "Replays the stored response when repeated"
// @Param        request body invoicingapp.CreateLineItemsRequest true "Items to add"
// @Success      201 {object} dto.Response{data=[]invoicingapp.LineItemResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /api/v1/invoices/{id}/line-items [post]
func (h *LineItemHandler) Create(c *gin.Context) {
	invoiceID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req invoicingapp.CreateLineItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	items, err := h.lineItemService.Create(c.Request.Context(), invoiceID, invoicingapp.ToInputs(req.Items))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, invoicingapp.ToLineItemResponses(items))
}

// Replace godoc
// @Summary      Replace line items
// @Description  Replace the invoice's whole item set; an empty list clears it
// @Tags         line-items
// @Accept       json
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Param        Idempotency-Key header string false "Replays the stored response when repeated"
// @Param        request body invoicingapp.ReplaceLineItemsRequest true "Replacement item set"
// @Success      200 {object} dto.Response{data=[]invoicingapp.LineItemResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /api/v1/invoices/{id}/line-items [put]
func (h *LineItemHandler) Replace(c *gin.Context) {
	invoiceID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req invoicingapp.ReplaceLineItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	items, err := h.lineItemService.ReplaceAll(c.Request.Context(), invoiceID, invoicingapp.ToInputs(req.Items))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, invoicingapp.ToLineItemResponses(items))
}

// Update godoc
// @Summary      Update a line item
// @Description  Apply a partial update; omitted fields keep their values and the line total is recomputed
// @Tags         line-items
// @Accept       json
// @Produce      json
// @Param        id path string true "Line item ID" format(uuid)
// @Param        Idempotency-Key header string false "Replays the stored response when repeated"
// @Param        request body invoicingapp.UpdateLineItemRequest true "Fields to change"
// @Success      200 {object} dto.Response{data=invoicingapp.LineItemResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /api/v1/line-items/{id} [patch]
func (h *LineItemHandler) Update(c *gin.Context) {
	itemID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req invoicingapp.UpdateLineItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	item, err := h.lineItemService.Update(c.Request.Context(), itemID, req.ToPatch())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, invoicingapp.ToLineItemResponse(item))
}

// Delete godoc
// @Summary      Delete a line item
// @Description  Remove one line item
// @Tags         line-items
// @Produce      json
// @Param        id path string true "Line item ID" format(uuid)
// @Success      204
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /api/v1/line-items/{id} [delete]
func (h *LineItemHandler) Delete(c *gin.Context) {
	itemID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.lineItemService.Delete(c.Request.Context(), itemID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

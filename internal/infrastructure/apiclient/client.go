// Package apiclient talks to the invoicing HTTP API. It implements the
// editing engine's store, recalculation and notes ports, so a Session can
// run against a remote server.
package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	invoicingapp "github.com/FelixFunesFS/train-catering-creations-sub005/internal/application/invoicing"
	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/domain/invoicing"
	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/domain/shared"
	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/interfaces/http/dto"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

const (
	apiPrefix         = "/api/v1"
	idempotencyHeader = "Idempotency-Key"
	defaultTimeout    = 15 * time.Second
)

// APIError is a non-success response without a domain equivalent
type APIError struct {
	Status    int
	Code      string
	Message   string
	RequestID string
}

func (e *APIError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("%s (%d %s, request %s)", e.Message, e.Status, e.Code, e.RequestID)
	}
	return fmt.Sprintf("%s (%d %s)", e.Message, e.Status, e.Code)
}

// Client is an invoicing API client
type Client struct {
	baseURL string
	http    *retryablehttp.Client
	logger  *zap.Logger
	newKey  func() string
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying transport client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http.HTTPClient = hc
	}
}

// WithLogger sets the client logger
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithIdempotencyKeys sets the generator for Idempotency-Key values
func WithIdempotencyKeys(gen func() string) Option {
	return func(c *Client) {
		c.newKey = gen
	}
}

// New creates a client for the API served at baseURL. Every call is sent
// exactly once; failures go back to the caller, which decides whether to
// try again.
func New(baseURL string, opts ...Option) *Client {
	rc := retryablehttp.NewClient()
	rc.HTTPClient = &http.Client{Timeout: defaultTimeout}
	rc.RetryMax = 0
	rc.CheckRetry = neverRetry
	// Hand the response back so its error envelope can be decoded
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    rc,
		logger:  zap.NewNop(),
		newKey:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	rc.Logger = leveledLogger{c.logger.Sugar()}
	return c
}

// Fetch implements editing.LineItemStore
func (c *Client) Fetch(ctx context.Context, invoiceID uuid.UUID) ([]invoicing.LineItem, error) {
	var items []invoicingapp.LineItemResponse
	if err := c.do(ctx, http.MethodGet, invoicePath(invoiceID, "line-items"), nil, &items, nil); err != nil {
		return nil, err
	}
	return toLineItems(items), nil
}

// Create implements editing.LineItemStore
func (c *Client) Create(ctx context.Context, invoiceID uuid.UUID, inputs []invoicing.LineItemInput) ([]invoicing.LineItem, error) {
	body := invoicingapp.CreateLineItemsRequest{Items: toRequests(inputs)}
	var items []invoicingapp.LineItemResponse
	if err := c.do(ctx, http.MethodPost, invoicePath(invoiceID, "line-items"), body, &items, nil); err != nil {
		return nil, err
	}
	return toLineItems(items), nil
}

// Update implements editing.LineItemStore
func (c *Client) Update(ctx context.Context, itemID uuid.UUID, patch invoicing.LineItemPatch) (*invoicing.LineItem, error) {
	body := invoicingapp.UpdateLineItemRequest{
		Title:          patch.Title,
		Description:    patch.Description,
		Quantity:       patch.Quantity,
		UnitPriceCents: patch.UnitPriceCents,
		Category:       patch.Category,
		SortOrder:      patch.SortOrder,
	}
	var resp invoicingapp.LineItemResponse
	if err := c.do(ctx, http.MethodPatch, apiPrefix+"/line-items/"+itemID.String(), body, &resp, nil); err != nil {
		return nil, err
	}
	item := resp.ToLineItem()
	return &item, nil
}

// Delete implements editing.LineItemStore
func (c *Client) Delete(ctx context.Context, itemID uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, apiPrefix+"/line-items/"+itemID.String(), nil, nil, nil)
}

// ReplaceAll implements editing.LineItemStore
func (c *Client) ReplaceAll(ctx context.Context, invoiceID uuid.UUID, inputs []invoicing.LineItemInput) ([]invoicing.LineItem, error) {
	body := invoicingapp.ReplaceLineItemsRequest{Items: toRequests(inputs)}
	var items []invoicingapp.LineItemResponse
	if err := c.do(ctx, http.MethodPut, invoicePath(invoiceID, "line-items"), body, &items, nil); err != nil {
		return nil, err
	}
	return toLineItems(items), nil
}

// Recalculate implements editing.TotalsRecalculator
func (c *Client) Recalculate(ctx context.Context, invoiceID uuid.UUID) error {
	_, err := c.RecalculateTotals(ctx, invoiceID)
	return err
}

// RecalculateTotals asks the server to recompute totals and returns them
func (c *Client) RecalculateTotals(ctx context.Context, invoiceID uuid.UUID) (*invoicingapp.TotalsResponse, error) {
	var totals invoicingapp.TotalsResponse
	if err := c.do(ctx, http.MethodPost, invoicePath(invoiceID, "recalculate"), nil, &totals, nil); err != nil {
		return nil, err
	}
	return &totals, nil
}

// WriteNotes implements editing.NotesWriter
func (c *Client) WriteNotes(ctx context.Context, invoiceID uuid.UUID, customerNotes, adminNotes string, expectedVersion *int) (int, error) {
	body := invoicingapp.UpdateNotesRequest{
		CustomerNotes:   customerNotes,
		AdminNotes:      adminNotes,
		ExpectedVersion: expectedVersion,
	}
	var inv invoicingapp.InvoiceResponse
	if err := c.do(ctx, http.MethodPut, invoicePath(invoiceID, "notes"), body, &inv, nil); err != nil {
		return 0, err
	}
	return inv.Version, nil
}

// GetInvoice fetches one invoice with its totals and milestones
func (c *Client) GetInvoice(ctx context.Context, invoiceID uuid.UUID) (*invoicingapp.InvoiceResponse, error) {
	var inv invoicingapp.InvoiceResponse
	if err := c.do(ctx, http.MethodGet, invoicePath(invoiceID, ""), nil, &inv, nil); err != nil {
		return nil, err
	}
	return &inv, nil
}

// GetMilestones fetches an invoice's payment schedule
func (c *Client) GetMilestones(ctx context.Context, invoiceID uuid.UUID) ([]invoicingapp.MilestoneResponse, error) {
	var milestones []invoicingapp.MilestoneResponse
	if err := c.do(ctx, http.MethodGet, invoicePath(invoiceID, "milestones"), nil, &milestones, nil); err != nil {
		return nil, err
	}
	return milestones, nil
}

// ListInvoices fetches one page of invoices
func (c *Client) ListInvoices(ctx context.Context, req invoicingapp.ListInvoicesRequest) ([]invoicingapp.InvoiceListItemResponse, *dto.Meta, error) {
	q := url.Values{}
	if req.Search != "" {
		q.Set("search", req.Search)
	}
	if req.Page > 0 {
		q.Set("page", strconv.Itoa(req.Page))
	}
	if req.PageSize > 0 {
		q.Set("page_size", strconv.Itoa(req.PageSize))
	}
	if req.OrderBy != "" {
		q.Set("order_by", req.OrderBy)
	}
	if req.OrderDir != "" {
		q.Set("order_dir", req.OrderDir)
	}
	path := apiPrefix + "/invoices"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var rows []invoicingapp.InvoiceListItemResponse
	var meta dto.Meta
	if err := c.do(ctx, http.MethodGet, path, nil, &rows, &meta); err != nil {
		return nil, nil, err
	}
	return rows, &meta, nil
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *dto.ErrorInfo  `json:"error"`
	Meta    *dto.Meta       `json:"meta"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any, meta *dto.Meta) error {
	var raw any
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encode request")
		}
		raw = encoded
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.baseURL+path, raw)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet {
		// A duplicated delivery of this call replays the first response
		req.Header.Set(idempotencyHeader, c.newKey())
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return errors.WithStack(ctxErr)
		}
		if resp == nil {
			return errors.Wrapf(err, "%s %s", method, path)
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "read response")
	}

	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return &APIError{Status: resp.StatusCode, Code: dto.ErrCodeUnknown, Message: http.StatusText(resp.StatusCode)}
		}
		return errors.Wrap(err, "decode response")
	}

	if resp.StatusCode >= http.StatusBadRequest || !env.Success {
		return toError(resp.StatusCode, env.Error)
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return errors.Wrap(err, "decode response data")
		}
	}
	if meta != nil && env.Meta != nil {
		*meta = *env.Meta
	}
	return nil
}

// toError rebuilds the domain error a response stands for, so callers can
// match shared sentinels such as shared.ErrNotFound across the wire.
func toError(status int, info *dto.ErrorInfo) error {
	if info == nil {
		return &APIError{Status: status, Code: dto.ErrCodeUnknown, Message: http.StatusText(status)}
	}
	if code := dto.DomainCode(info.Code); code != "" {
		return errors.WithStack(shared.NewDomainError(code, info.Message))
	}
	return &APIError{
		Status:    status,
		Code:      info.Code,
		Message:   info.Message,
		RequestID: info.RequestID,
	}
}

func invoicePath(invoiceID uuid.UUID, sub string) string {
	p := apiPrefix + "/invoices/" + invoiceID.String()
	if sub != "" {
		p += "/" + sub
	}
	return p
}

func toRequests(inputs []invoicing.LineItemInput) []invoicingapp.LineItemRequest {
	out := make([]invoicingapp.LineItemRequest, len(inputs))
	for i, in := range inputs {
		out[i] = invoicingapp.LineItemRequest{
			ID:             in.ID,
			Title:          in.Title,
			Description:    in.Description,
			Quantity:       in.Quantity,
			UnitPriceCents: in.UnitPriceCents,
			Category:       in.Category,
			SortOrder:      in.SortOrder,
		}
	}
	return out
}

func toLineItems(responses []invoicingapp.LineItemResponse) []invoicing.LineItem {
	out := make([]invoicing.LineItem, len(responses))
	for i, r := range responses {
		out[i] = r.ToLineItem()
	}
	return out
}

// neverRetry is the client's retry policy: store, notes and recalculation
// calls surface their first failure.
func neverRetry(ctx context.Context, _ *http.Response, _ error) (bool, error) {
	return false, ctx.Err()
}

// leveledLogger adapts zap to retryablehttp.LeveledLogger
type leveledLogger struct {
	s *zap.SugaredLogger
}

func (l leveledLogger) Error(msg string, kv ...any) { l.s.Errorw(msg, kv...) }
func (l leveledLogger) Info(msg string, kv ...any)  { l.s.Debugw(msg, kv...) }
func (l leveledLogger) Debug(msg string, kv ...any) { l.s.Debugw(msg, kv...) }
func (l leveledLogger) Warn(msg string, kv ...any)  { l.s.Warnw(msg, kv...) }

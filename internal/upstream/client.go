// Package upstream provides the HTTP client for the remote
// account-aggregation service.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ledgermirror/ledgerd/internal/common"
	"github.com/ledgermirror/ledgerd/internal/model"
	"github.com/ledgermirror/ledgerd/internal/service"

	"golang.org/x/oauth2"
)

// requestTimeout bounds every upstream call. A timeout fails the enclosing
// sync attempt; there is no cooperative cancellation mid-page.
const requestTimeout = 30 * time.Second

// Client implements service.UpstreamClient against the aggregation API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates an upstream client authenticating with the given bearer
// token.
func NewClient(baseURL, token string) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("%w: upstream base URL", common.ErrMissingConfig)
	}
	if token == "" {
		return nil, fmt.Errorf("%w: upstream access token", common.ErrMissingConfig)
	}

	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: requestTimeout,
			Transport: &oauth2.Transport{
				Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}),
			},
		},
	}, nil
}

// Wire types for the aggregation API.
type transactionListResponse struct {
	NextCursor   string            `json:"nextCursor"`
	AsOf         string            `json:"asOf"`
	Transactions []json.RawMessage `json:"transactions"`
}

type wireTransaction struct {
	ID            string                `json:"id"`
	PostedOn      string                `json:"postedOn"`
	ModifiedAt    time.Time             `json:"modifiedAt"`
	AccountID     string                `json:"accountId"`
	Payee         string                `json:"payee"`
	RenamedPayee  string                `json:"renamedPayee"`
	InferredPayee string                `json:"inferredPayee"`
	Notes         string                `json:"notes"`
	Coa           *model.Classification `json:"coa"`
	State         string                `json:"state"`
	Amount        float64               `json:"amount"`
	IsDeleted     bool                  `json:"isDeleted"`
}

type categoryListResponse struct {
	NextCursor string         `json:"nextCursor"`
	AsOf       string         `json:"asOf"`
	Categories []wireCategory `json:"categories"`
}

type wireCategory struct {
	ID        string `json:"id"`
	ParentID  string `json:"parentId"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	CanEdit   bool   `json:"canEdit"`
	CanDelete bool   `json:"canDelete"`
	IsDeleted bool   `json:"isDeleted"`
}

type tagListResponse struct {
	NextCursor string    `json:"nextCursor"`
	AsOf       string    `json:"asOf"`
	Tags       []wireTag `json:"tags"`
}

type wireTag struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	UseCount  int    `json:"useCount"`
	IsDeleted bool   `json:"isDeleted"`
}

type ledgerInfoResponse struct {
	FirstTransactionDate string `json:"firstTransactionDate"`
}

// ListTransactions fetches one page of transactions. Exactly one of
// opts.Start and opts.ModifiedSince should be set for the first page; the
// continuation cursor carries the filter server-side after that.
func (c *Client) ListTransactions(ctx context.Context, opts service.ListOptions) (*service.TransactionBatch, error) {
	q := url.Values{}
	if opts.Cursor != "" {
		q.Set("cursor", opts.Cursor)
	}
	if opts.ModifiedSince != "" {
		q.Set("modified-since", opts.ModifiedSince)
	}
	if opts.Start != nil {
		q.Set("start-date", opts.Start.Format("2006-01-02"))
	}

	var resp transactionListResponse
	if err := c.getJSON(ctx, "transactions", q, &resp); err != nil {
		return nil, err
	}

	batch := &service.TransactionBatch{
		NextCursor: resp.NextCursor,
		AsOf:       resp.AsOf,
	}
	for _, raw := range resp.Transactions {
		var wire wireTransaction
		if err := json.Unmarshal(raw, &wire); err != nil {
			return nil, fmt.Errorf("failed to decode transaction: %w", err)
		}

		txn := model.Transaction{
			ID:            wire.ID,
			ModifiedAt:    wire.ModifiedAt,
			AccountID:     wire.AccountID,
			Payee:         wire.Payee,
			RenamedPayee:  wire.RenamedPayee,
			InferredPayee: wire.InferredPayee,
			Notes:         wire.Notes,
			Coa:           wire.Coa,
			State:         wire.State,
			Amount:        wire.Amount,
			Deleted:       wire.IsDeleted,
			Payload:       raw,
		}
		if wire.PostedOn != "" {
			posted, err := time.Parse("2006-01-02", wire.PostedOn)
			if err != nil {
				return nil, fmt.Errorf("failed to parse posted date %q: %w", wire.PostedOn, err)
			}
			txn.PostedOn = posted
		}

		batch.Transactions = append(batch.Transactions, txn)
	}

	return batch, nil
}

// ListCategories fetches one page of categories.
func (c *Client) ListCategories(ctx context.Context, cursor string) (*service.CategoryBatch, error) {
	q := url.Values{}
	if cursor != "" {
		q.Set("cursor", cursor)
	}

	var resp categoryListResponse
	if err := c.getJSON(ctx, "categories", q, &resp); err != nil {
		return nil, err
	}

	batch := &service.CategoryBatch{
		NextCursor: resp.NextCursor,
		AsOf:       resp.AsOf,
	}
	for _, wire := range resp.Categories {
		payload, err := json.Marshal(wire)
		if err != nil {
			return nil, fmt.Errorf("failed to encode category payload: %w", err)
		}
		batch.Categories = append(batch.Categories, model.Category{
			ID:        wire.ID,
			ParentID:  wire.ParentID,
			Name:      wire.Name,
			Type:      wire.Type,
			CanEdit:   wire.CanEdit,
			CanDelete: wire.CanDelete,
			Deleted:   wire.IsDeleted,
			Payload:   payload,
		})
	}

	return batch, nil
}

// ListTags fetches one page of tags.
func (c *Client) ListTags(ctx context.Context, cursor string) (*service.TagBatch, error) {
	q := url.Values{}
	if cursor != "" {
		q.Set("cursor", cursor)
	}

	var resp tagListResponse
	if err := c.getJSON(ctx, "tags", q, &resp); err != nil {
		return nil, err
	}

	batch := &service.TagBatch{
		NextCursor: resp.NextCursor,
		AsOf:       resp.AsOf,
	}
	for _, wire := range resp.Tags {
		payload, err := json.Marshal(wire)
		if err != nil {
			return nil, fmt.Errorf("failed to encode tag payload: %w", err)
		}
		batch.Tags = append(batch.Tags, model.Tag{
			ID:       wire.ID,
			Name:     wire.Name,
			Type:     wire.Type,
			UseCount: wire.UseCount,
			Deleted:  wire.IsDeleted,
			Payload:  payload,
		})
	}

	return batch, nil
}

// UpdateTransaction submits a full merged record for a single transaction.
func (c *Client) UpdateTransaction(ctx context.Context, id string, payload map[string]any) error {
	if id == "" {
		return fmt.Errorf("%w: transaction id", common.ErrMissingConfig)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode transaction payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/transactions/%s", c.baseURL, url.PathEscape(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrUpstreamConnection, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(resp.Body)
		return &common.UpstreamError{
			Op:     "update transaction",
			Status: resp.StatusCode,
			Body:   string(respBody),
		}
	}

	return nil
}

// EarliestTransactionDate reports the earliest date for which upstream holds
// history. Used only to anchor the first full sync.
func (c *Client) EarliestTransactionDate(ctx context.Context) (time.Time, error) {
	var resp ledgerInfoResponse
	if err := c.getJSON(ctx, "ledger", nil, &resp); err != nil {
		return time.Time{}, err
	}

	if resp.FirstTransactionDate == "" {
		return time.Time{}, fmt.Errorf("upstream reported no transaction history")
	}

	date, err := time.Parse("2006-01-02", resp.FirstTransactionDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse first transaction date %q: %w", resp.FirstTransactionDate, err)
	}

	return date, nil
}

// getJSON performs a GET against a relative path and decodes the JSON
// response, mapping failures onto the shared error taxonomy.
func (c *Client) getJSON(ctx context.Context, path string, q url.Values, out any) error {
	endpoint := c.baseURL + "/" + path
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrUpstreamConnection, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &common.UpstreamError{
			Op:     "get " + path,
			Status: resp.StatusCode,
			Body:   string(body),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// Ensure Client implements the UpstreamClient interface.
var _ service.UpstreamClient = (*Client)(nil)

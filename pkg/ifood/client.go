package ifood

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/hubfood/ifood-erp-sync/pkg/config"
	pkgerrors "github.com/hubfood/ifood-erp-sync/pkg/errors"
	"github.com/hubfood/ifood-erp-sync/pkg/logger"
	"github.com/hubfood/ifood-erp-sync/pkg/resilience"
)

const (
	pollPath      = "/order/v1.0/events:polling"
	ackPath       = "/order/v1.0/events/acknowledgment"
	orderPathFmt  = "/order/v1.0/orders/%s"
	stockPathFmt  = "/catalog/v2.0/merchants/%s/inventory"
	statusPathFmt = "/catalog/v2.0/merchants/%s/products/status"
	batchPathFmt  = "/catalog/v2.0/merchants/%s/batches/%s"

	pollingMerchantsHeader = "x-polling-merchants"
)

var (
	errTokensRequired = errors.New("ifood token provider is required")
	errLoggerRequired = errors.New("ifood logger is required")

	// ErrBatchPending marks a status batch that has not reached a terminal
	// state inside the wait budget.
	ErrBatchPending = pkgerrors.New(pkgerrors.CodeDependency, "catalog batch still processing")
)

// Client exposes the marketplace endpoints with centralized auth, call
// shaping and error mapping.
type Client struct {
	baseURL string
	cfg     config.IFoodConfig
	http    *http.Client
	tokens  TokenProvider
	exec    resilience.Executor
	logger  *logger.Logger
}

// NewClient initializes the marketplace wrapper.
func NewClient(cfg config.IFoodConfig, tokens TokenProvider, exec resilience.Executor, logg *logger.Logger) (*Client, error) {
	if tokens == nil {
		return nil, errTokensRequired
	}
	if logg == nil {
		return nil, errLoggerRequired
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("ifood base url is required")
	}
	return &Client{
		baseURL: baseURL,
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.HTTPTimeout},
		tokens:  tokens,
		exec:    exec,
		logger:  logg,
	}, nil
}

// PollEvents pulls pending events for the given merchants using the
// application-level token. A 204 means the queue is empty.
func (c *Client) PollEvents(ctx context.Context, opts PollOptions) ([]Event, error) {
	if len(opts.Merchants) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "polling requires at least one merchant")
	}

	query := map[string]string{}
	if len(opts.Types) > 0 {
		query["types"] = strings.Join(opts.Types, ",")
	}
	if len(opts.Groups) > 0 {
		query["groups"] = strings.Join(opts.Groups, ",")
	}

	headers := map[string]string{
		pollingMerchantsHeader: strings.Join(opts.Merchants, ","),
	}

	var events []Event
	err := c.call(ctx, callParams{
		key:        "ifood:app:poll",
		merchantID: "",
		method:     http.MethodGet,
		path:       pollPath,
		query:      query,
		headers:    headers,
		out:        &events,
	})
	if err != nil {
		return nil, err
	}
	for i := range events {
		if events[i].Raw == nil {
			raw, merr := json.Marshal(events[i])
			if merr == nil {
				events[i].Raw = raw
			}
		}
	}
	return events, nil
}

// AcknowledgeEvents confirms receipt so the marketplace stops redelivering.
func (c *Client) AcknowledgeEvents(ctx context.Context, merchantID string, eventIDs []string) error {
	if len(eventIDs) == 0 {
		return nil
	}
	body := make([]ackEntry, 0, len(eventIDs))
	for _, id := range eventIDs {
		body = append(body, ackEntry{ID: id})
	}
	return c.call(ctx, callParams{
		key:        fmt.Sprintf("ifood:%s:ack", merchantID),
		merchantID: merchantID,
		method:     http.MethodPost,
		path:       ackPath,
		body:       body,
	})
}

// OrderDetails fetches the full order payload. The marketplace publishes
// events before the order is readable, so 404 gets its own bounded retry on
// top of the transient-failure shaping.
func (c *Client) OrderDetails(ctx context.Context, merchantID, orderID string) (*OrderDetail, error) {
	var detail OrderDetail

	backoff := retry.NewExponential(c.cfg.DetailBaseDelay)
	backoff = retry.WithMaxRetries(uint64(c.cfg.DetailMaxAttempts-1), backoff)

	ctx, cancel := context.WithTimeout(ctx, c.cfg.DetailMaxElapsed)
	defer cancel()

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		callErr := c.call(ctx, callParams{
			key:        fmt.Sprintf("ifood:%s:order", merchantID),
			merchantID: merchantID,
			method:     http.MethodGet,
			path:       fmt.Sprintf(orderPathFmt, orderID),
			out:        &detail,
		})
		if pkgerrors.HasCode(callErr, pkgerrors.CodeNotFound) {
			return retry.RetryableError(callErr)
		}
		return callErr
	})
	if err != nil {
		return nil, err
	}

	detail.MerchantID = merchantID
	return &detail, nil
}

// PublishStock pushes available quantities to the marketplace catalog.
func (c *Client) PublishStock(ctx context.Context, merchantID string, items []StockItem) error {
	if len(items) == 0 {
		return nil
	}
	return c.call(ctx, callParams{
		key:        fmt.Sprintf("ifood:%s:stock", merchantID),
		merchantID: merchantID,
		method:     http.MethodPatch,
		path:       fmt.Sprintf(stockPathFmt, merchantID),
		body:       items,
	})
}

// PatchProductStatus submits an availability flip batch and returns its id.
func (c *Client) PatchProductStatus(ctx context.Context, merchantID string, changes []ProductStatusChange) (string, error) {
	if len(changes) == 0 {
		return "", nil
	}
	var accepted batchAccepted
	err := c.call(ctx, callParams{
		key:        fmt.Sprintf("ifood:%s:status", merchantID),
		merchantID: merchantID,
		method:     http.MethodPatch,
		path:       fmt.Sprintf(statusPathFmt, merchantID),
		body:       changes,
		out:        &accepted,
	})
	if err != nil {
		return "", err
	}
	return accepted.BatchID, nil
}

// GetBatch reads the current state of a catalog batch.
func (c *Client) GetBatch(ctx context.Context, merchantID, batchID string) (*BatchResult, error) {
	var result BatchResult
	err := c.call(ctx, callParams{
		key:        fmt.Sprintf("ifood:%s:status", merchantID),
		merchantID: merchantID,
		method:     http.MethodGet,
		path:       fmt.Sprintf(batchPathFmt, merchantID, batchID),
		out:        &result,
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// WaitBatch polls the batch at a fixed cadence until it completes or the
// try budget runs out.
func (c *Client) WaitBatch(ctx context.Context, merchantID, batchID string) (*BatchResult, error) {
	var result *BatchResult

	backoff := retry.NewConstant(c.cfg.BatchWaitDelay)
	backoff = retry.WithMaxRetries(uint64(c.cfg.BatchWaitTries-1), backoff)

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		batch, getErr := c.GetBatch(ctx, merchantID, batchID)
		if getErr != nil {
			return getErr
		}
		if batch.Status == BatchStatusProcessing || batch.Status == "" {
			return retry.RetryableError(ErrBatchPending)
		}
		result = batch
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

type callParams struct {
	key        string
	merchantID string
	method     string
	path       string
	query      map[string]string
	headers    map[string]string
	body       any
	out        any
}

func (c *Client) call(ctx context.Context, p callParams) error {
	return c.exec.Execute(ctx, p.key, func(ctx context.Context) error {
		return c.doOnce(ctx, p)
	})
}

func (c *Client) doOnce(ctx context.Context, p callParams) error {
	token, err := c.tokens.Token(ctx, p.merchantID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "fetching marketplace token")
	}

	var bodyReader io.Reader
	if p.body != nil {
		encoded, merr := json.Marshal(p.body)
		if merr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, merr, "encoding request body")
		}
		bodyReader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, p.method, c.baseURL+p.path, bodyReader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building marketplace request")
	}

	if len(p.query) > 0 {
		q := req.URL.Query()
		for k, v := range p.query {
			q.Set(k, v)
		}
		req.URL.RawQuery = q.Encode()
	}

	req.Header.Set("Authorization", "Bearer "+token)
	if p.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range p.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("marketplace %s %s: %w", p.method, p.path, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading marketplace response: %w", err)
	}

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if resp.StatusCode >= 400 {
		return c.mapStatus(ctx, resp, payload, p)
	}

	if p.out != nil && len(payload) > 0 {
		if err := json.Unmarshal(payload, p.out); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding marketplace response")
		}
	}
	return nil
}

func (c *Client) mapStatus(ctx context.Context, resp *http.Response, payload []byte, p callParams) error {
	message := strings.TrimSpace(string(payload))
	if len(message) > 300 {
		message = message[:300]
	}

	c.logger.Error(
		c.logger.WithFields(ctx, map[string]any{
			"status": resp.StatusCode,
			"method": p.method,
			"path":   p.path,
		}),
		"marketplace call failed",
		errors.New(message),
	)

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return &resilience.StatusError{
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			Message:    message,
		}
	}
	return pkgerrors.Wrap(domainCodeForStatus(resp.StatusCode),
		&resilience.StatusError{StatusCode: resp.StatusCode, Message: message},
		fmt.Sprintf("marketplace %s failed", p.path))
}

// parseRetryAfter understands both delta-seconds and HTTP-date forms.
func parseRetryAfter(raw string) time.Duration {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(raw); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}

func domainCodeForStatus(status int) pkgerrors.Code {
	switch status {
	case http.StatusUnauthorized:
		return pkgerrors.CodeUnauthorized
	case http.StatusForbidden:
		return pkgerrors.CodeForbidden
	case http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case http.StatusConflict:
		return pkgerrors.CodeConflict
	default:
		if status >= 400 && status < 500 {
			return pkgerrors.CodeValidation
		}
		return pkgerrors.CodeDependency
	}
}

package erp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/hubfood/ifood-erp-sync/pkg/config"
	pkgerrors "github.com/hubfood/ifood-erp-sync/pkg/errors"
	"github.com/hubfood/ifood-erp-sync/pkg/logger"
	"github.com/hubfood/ifood-erp-sync/pkg/resilience"
)

const (
	salesPath     = "/api/v1/vendas"
	saleFmt       = "/api/v1/vendas/%s"
	customersPath = "/api/v1/clientes"
	movementsPath = "/api/v1/estoque/movimentos"

	idempotencyHeader = "Idempotency-Key"
)

// ErrDisabled is returned by every operation when no base URL is configured.
var ErrDisabled = errors.New("erp integration is not configured")

// Client wraps the back-office REST API with call shaping and error mapping.
type Client struct {
	cfg    config.ERPConfig
	http   *http.Client
	exec   resilience.Executor
	logger *logger.Logger
}

func NewClient(cfg config.ERPConfig, exec resilience.Executor, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errors.New("erp logger is required")
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.HTTPTimeout},
		exec:   exec,
		logger: logg,
	}, nil
}

// Enabled reports whether calls will reach a real backend.
func (c *Client) Enabled() bool {
	return c.cfg.Enabled()
}

// CreateSale opens a sale. The idempotency key dedupes replays: a 409 from
// the backend means the sale already exists and is mapped to CodeConflict
// for the caller to treat as already-created.
func (c *Client) CreateSale(ctx context.Context, params SaleCreateParams) (*Sale, error) {
	if !c.Enabled() {
		return nil, ErrDisabled
	}
	if params.IdempotencyKey == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sale idempotency key is required")
	}

	body := saleCreateBody{
		ClienteID:  params.CustomerID,
		LojaID:     params.LocationID,
		Tipo:       params.Kind,
		SituacaoID: params.SituationID,
		Referencia: params.Reference,
		ValorFrete: params.DeliveryFee,
		Itens:      params.Items,
	}

	var envelope itemEnvelope[Sale]
	err := c.call(ctx, callParams{
		key:    "erp:sales",
		method: http.MethodPost,
		path:   salesPath,
		headers: map[string]string{
			idempotencyHeader: params.IdempotencyKey,
		},
		body: body,
		out:  &envelope,
	})
	if err != nil {
		return nil, err
	}
	return &envelope.Data, nil
}

// UpdateSaleSituation moves a sale to the given situation.
func (c *Client) UpdateSaleSituation(ctx context.Context, saleID string, situationID int) error {
	if !c.Enabled() {
		return ErrDisabled
	}
	return c.call(ctx, callParams{
		key:    "erp:sales",
		method: http.MethodPut,
		path:   fmt.Sprintf(saleFmt, saleID),
		body:   saleUpdateBody{SituacaoID: situationID},
	})
}

// FindCustomer looks a customer up by document first, then by name+phone.
func (c *Client) FindCustomer(ctx context.Context, document, name, phone string) (*Customer, error) {
	if !c.Enabled() {
		return nil, ErrDisabled
	}

	if doc := digitsOnly(document); doc != "" {
		found, err := c.listCustomers(ctx, url.Values{"cpf_cnpj": {doc}})
		if err != nil {
			return nil, err
		}
		if len(found) > 0 {
			return &found[0], nil
		}
	}

	if name != "" {
		query := url.Values{"nome": {name}}
		if phone != "" {
			query.Set("telefone", digitsOnly(phone))
		}
		found, err := c.listCustomers(ctx, query)
		if err != nil {
			return nil, err
		}
		if len(found) > 0 {
			return &found[0], nil
		}
	}

	return nil, nil
}

// CreateCustomer registers a customer, deriving the person kind from the
// document length when the caller did not set one.
func (c *Client) CreateCustomer(ctx context.Context, params CustomerCreateParams) (*Customer, error) {
	if !c.Enabled() {
		return nil, ErrDisabled
	}
	if params.Kind == "" {
		params.Kind = PersonKindFor(params.Document)
	}
	params.Document = digitsOnly(params.Document)
	params.Phone = digitsOnly(params.Phone)

	var envelope itemEnvelope[Customer]
	err := c.call(ctx, callParams{
		key:    "erp:customers",
		method: http.MethodPost,
		path:   customersPath,
		body:   params,
		out:    &envelope,
	})
	if err != nil {
		return nil, err
	}
	return &envelope.Data, nil
}

// PostMovement records a stock movement. Callers treat failures here as
// non-fatal; the sale itself is the source of truth.
func (c *Client) PostMovement(ctx context.Context, params MovementParams) error {
	if !c.Enabled() {
		return ErrDisabled
	}
	return c.call(ctx, callParams{
		key:    "erp:movements",
		method: http.MethodPost,
		path:   movementsPath,
		body:   params,
	})
}

// PersonKindFor maps a document to PF/PJ, foreigners lack both shapes.
func PersonKindFor(document string) string {
	switch len(digitsOnly(document)) {
	case 11:
		return PersonKindIndividual
	case 14:
		return PersonKindCompany
	default:
		return PersonKindForeign
	}
}

func (c *Client) listCustomers(ctx context.Context, query url.Values) ([]Customer, error) {
	var envelope listEnvelope[Customer]
	err := c.call(ctx, callParams{
		key:    "erp:customers",
		method: http.MethodGet,
		path:   customersPath + "?" + query.Encode(),
		out:    &envelope,
	})
	if err != nil {
		return nil, err
	}
	return envelope.Data, nil
}

type callParams struct {
	key     string
	method  string
	path    string
	headers map[string]string
	body    any
	out     any
}

func (c *Client) call(ctx context.Context, p callParams) error {
	return c.exec.Execute(ctx, p.key, func(ctx context.Context) error {
		return c.doOnce(ctx, p)
	})
}

func (c *Client) doOnce(ctx context.Context, p callParams) error {
	var bodyReader io.Reader
	if p.body != nil {
		encoded, err := json.Marshal(p.body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding erp request body")
		}
		bodyReader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, p.method, c.cfg.NormalizedBaseURL()+p.path, bodyReader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building erp request")
	}

	req.Header.Set("Authorization", "Bearer "+c.cfg.APIToken)
	if p.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range p.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("erp %s %s: %w", p.method, p.path, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading erp response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return c.mapStatus(ctx, resp.StatusCode, payload, p)
	}

	if p.out != nil && len(payload) > 0 {
		if err := json.Unmarshal(payload, p.out); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding erp response")
		}
	}
	return nil
}

func (c *Client) mapStatus(ctx context.Context, status int, payload []byte, p callParams) error {
	message := strings.TrimSpace(string(payload))
	if len(message) > 300 {
		message = message[:300]
	}

	c.logger.Error(
		c.logger.WithFields(ctx, map[string]any{
			"status": status,
			"method": p.method,
			"path":   p.path,
		}),
		"erp call failed",
		errors.New(message),
	)

	if status == http.StatusTooManyRequests || status >= 500 {
		return &resilience.StatusError{StatusCode: status, Message: message}
	}

	code := pkgerrors.CodeValidation
	switch status {
	case http.StatusUnauthorized:
		code = pkgerrors.CodeUnauthorized
	case http.StatusForbidden:
		code = pkgerrors.CodeForbidden
	case http.StatusNotFound:
		code = pkgerrors.CodeNotFound
	case http.StatusConflict:
		code = pkgerrors.CodeConflict
	}
	return pkgerrors.Wrap(code,
		&resilience.StatusError{StatusCode: status, Message: message},
		fmt.Sprintf("erp %s failed", p.path))
}

func digitsOnly(v string) string {
	var b strings.Builder
	for _, r := range v {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

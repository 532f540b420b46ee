// Package catalog talks to the remote wholesale API: products, quantity
// tiers and order requests.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/utafrali/wholesale-storefront/internal/auth"
	"github.com/utafrali/wholesale-storefront/internal/domain"
	"github.com/utafrali/wholesale-storefront/internal/variation"
	apperrors "github.com/utafrali/wholesale-storefront/pkg/errors"
	"github.com/utafrali/wholesale-storefront/pkg/httpclient"
)

const serviceName = "wholesale-api"

// Client calls the wholesale API. Reads go through a retrying, breaker-guarded
// doer; order creation uses a doer that never retries.
type Client struct {
	baseURL string
	reads   httpclient.Doer
	orders  httpclient.Doer
	tokens  auth.Provider
	logger  *slog.Logger
}

// NewClient creates a wholesale API client. baseURL is the API root, for
// example https://wholesale.techjodo.xyz/api.
func NewClient(baseURL string, reads, orders httpclient.Doer, tokens auth.Provider, logger *slog.Logger) *Client {
	if tokens == nil {
		tokens = auth.Static("")
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		reads:   reads,
		orders:  orders,
		tokens:  tokens,
		logger:  logger,
	}
}

// Products lists the catalog.
func (c *Client) Products(ctx context.Context) ([]domain.Product, error) {
	var products []domain.Product
	if err := c.getJSON(ctx, "/v1/products", &products); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

// Product fetches one catalog entry.
func (c *Client) Product(ctx context.Context, id int64) (*domain.Product, error) {
	var product domain.Product
	if err := c.getJSON(ctx, "/v1/products/"+strconv.FormatInt(id, 10), &product); err != nil {
		return nil, fmt.Errorf("get product %d: %w", id, err)
	}
	if product.ID == 0 {
		return nil, apperrors.NotFound("product", strconv.FormatInt(id, 10))
	}
	return &product, nil
}

// Variations returns the quantity tiers of productID, in server order.
func (c *Client) Variations(ctx context.Context, productID int64) ([]domain.Variation, error) {
	path := "/variations?" + url.Values{"product_id": {strconv.FormatInt(productID, 10)}}.Encode()

	var variations []domain.Variation
	if err := c.getJSON(ctx, path, &variations); err != nil {
		return nil, fmt.Errorf("list variations for product %d: %w", productID, err)
	}
	return variation.ForProduct(productID, variations), nil
}

// OrderRequests lists orders previously placed by tokenableID.
func (c *Client) OrderRequests(ctx context.Context, tokenableID string) ([]domain.RemoteOrder, error) {
	path := "/v1/order_requests?" + url.Values{"tokenable_id": {tokenableID}}.Encode()

	var orders []domain.RemoteOrder
	if err := c.getJSON(ctx, path, &orders); err != nil {
		return nil, fmt.Errorf("list order requests: %w", err)
	}
	return orders, nil
}

// CreateOrder posts order with the given bearer credential. Only 200 and 201
// count as accepted. Transport failures and timeouts yield a NetworkError,
// any other status a ServerError.
func (c *Client) CreateOrder(ctx context.Context, token string, order *domain.Order) error {
	body, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("marshal order: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/order_requests", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create order request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.orders.Do(ctx, req)
	if err != nil {
		if status, ok := httpclient.ResponseStatus(err); ok {
			return domain.ServerError(status, err)
		}
		return domain.NetworkError(err)
	}

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		_ = resp.Body.Close()
		return nil
	default:
		return domain.ServerError(resp.StatusCode, httpclient.ParseResponseError(resp, serviceName))
	}
}

func (c *Client) getJSON(ctx context.Context, path string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if token, ok := c.tokens.Token(ctx); ok {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.reads.Do(ctx, req)
	if err != nil {
		if httpclient.IsCircuitOpen(err) {
			return apperrors.ServiceUnavailable(serviceName + " is temporarily unavailable")
		}
		if _, ok := httpclient.ResponseStatus(err); ok {
			return upstreamError(err)
		}
		return apperrors.BadGateway(fmt.Sprintf("%s unreachable: %v", serviceName, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return upstreamError(httpclient.ParseResponseError(resp, serviceName))
	}

	return decodeBody(resp, target)
}

// upstreamError keeps mapped AppErrors and reports anything else as a bad
// gateway. The upstream error stays in the chain for ResponseStatus.
func upstreamError(err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	msg := serviceName + " request failed"
	if status, ok := httpclient.ResponseStatus(err); ok {
		msg = fmt.Sprintf("%s responded with status %d", serviceName, status)
	}
	return apperrors.New("BAD_GATEWAY", msg, http.StatusBadGateway, fmt.Errorf("%w: %w", apperrors.ErrBadGateway, err))
}

// decodeBody accepts both a bare payload and one wrapped in {"data": ...}.
func decodeBody(resp *http.Response, target any) error {
	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return apperrors.BadGateway(fmt.Sprintf("%s: decode response: %v", serviceName, err))
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var envelope struct {
			Data json.RawMessage `json:"data"`
		}
		if json.Unmarshal(trimmed, &envelope) == nil && len(envelope.Data) > 0 && !bytes.Equal(envelope.Data, []byte("null")) {
			trimmed = envelope.Data
		}
	}

	if err := json.Unmarshal(trimmed, target); err != nil {
		return apperrors.BadGateway(fmt.Sprintf("%s: decode response: %v", serviceName, err))
	}
	return nil
}

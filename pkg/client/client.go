// Package client talks to the storefront REST API and keeps a local mirror of
// the shopper's cart.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"coffeeshop/pkg/api"
	"coffeeshop/pkg/cart"
	"coffeeshop/pkg/catalog"
	"coffeeshop/pkg/order"
)

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Details    any
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// Client is a REST client. The session cookie is kept in its cookie jar, so
// one Client is one shopper.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. A cookie jar is added
// if it has none.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New returns a Client for the API at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, err
		}
		c.http.Jar = jar
	}
	return c, nil
}

// ProductQuery selects a page of products. Zero fields use server defaults.
type ProductQuery struct {
	Category string
	Page     int
	PerPage  int
}

func (q ProductQuery) values() url.Values {
	v := url.Values{}
	if q.Category != "" {
		v.Set("category", q.Category)
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.PerPage > 0 {
		v.Set("per_page", strconv.Itoa(q.PerPage))
	}
	return v
}

// Products fetches one page of the catalog.
func (c *Client) Products(ctx context.Context, q ProductQuery) (api.ProductsResponse, error) {
	var out api.ProductsResponse
	path := "/api/products"
	if qs := q.values().Encode(); qs != "" {
		path += "?" + qs
	}
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

// Product fetches a product by id.
func (c *Client) Product(ctx context.Context, id string) (catalog.Product, error) {
	var out catalog.Product
	err := c.do(ctx, http.MethodGet, "/api/products/"+url.PathEscape(id), nil, &out)
	return out, err
}

// Categories lists the catalog categories.
func (c *Client) Categories(ctx context.Context) ([]catalog.Category, error) {
	var out []catalog.Category
	err := c.do(ctx, http.MethodGet, "/api/categories", nil, &out)
	return out, err
}

// Cart fetches the session's cart.
func (c *Client) Cart(ctx context.Context) (cart.Cart, error) {
	var out cart.Cart
	err := c.do(ctx, http.MethodGet, "/api/cart", nil, &out)
	return out, err
}

// AddItem adds quantity units of productID to the cart.
func (c *Client) AddItem(ctx context.Context, productID string, quantity int) (cart.Cart, error) {
	var out cart.Cart
	err := c.do(ctx, http.MethodPost, "/api/cart", api.AddItemRequest{ProductID: productID, Quantity: &quantity}, &out)
	return out, err
}

// UpdateItem sets the quantity of productID; zero removes it.
func (c *Client) UpdateItem(ctx context.Context, productID string, quantity int) (cart.Cart, error) {
	var out cart.Cart
	err := c.do(ctx, http.MethodPut, "/api/cart/"+url.PathEscape(productID), api.UpdateItemRequest{Quantity: &quantity}, &out)
	return out, err
}

// RemoveItem drops productID from the cart.
func (c *Client) RemoveItem(ctx context.Context, productID string) (cart.Cart, error) {
	var out cart.Cart
	err := c.do(ctx, http.MethodDelete, "/api/cart/"+url.PathEscape(productID), nil, &out)
	return out, err
}

// PlaceOrder checks out the session's cart.
func (c *Client) PlaceOrder(ctx context.Context, req order.CheckoutRequest) (order.Order, error) {
	var out order.Order
	err := c.do(ctx, http.MethodPost, "/api/orders", req, &out)
	return out, err
}

// Order fetches an order by id.
func (c *Client) Order(ctx context.Context, id string) (order.Order, error) {
	var out order.Order
	err := c.do(ctx, http.MethodGet, "/api/orders/"+url.PathEscape(id), nil, &out)
	return out, err
}

// Orders lists the orders placed with this client's session.
func (c *Client) Orders(ctx context.Context) ([]order.Order, error) {
	var out []order.Order
	err := c.do(ctx, http.MethodGet, "/api/orders", nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var eb api.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&eb); err != nil || eb.Error.Code == "" {
			return &APIError{StatusCode: resp.StatusCode, Code: "http_error", Message: resp.Status}
		}
		return &APIError{StatusCode: resp.StatusCode, Code: eb.Error.Code, Message: eb.Error.Message, Details: eb.Error.Details}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

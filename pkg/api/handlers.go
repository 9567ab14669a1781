package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel/attribute"

	"coffeeshop/pkg/catalog"
	"coffeeshop/pkg/order"
	"coffeeshop/pkg/otel"
	"coffeeshop/pkg/session"
)

// ProductsResponse is one page of the product listing.
type ProductsResponse struct {
	Products   []catalog.Product  `json:"products"`
	Categories []catalog.Category `json:"categories"`
	Total      int                `json:"total"`
	Page       int                `json:"page"`
	PerPage    int                `json:"per_page"`
}

// AddItemRequest adds a product to the cart.
type AddItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  *int   `json:"quantity"`
}

// UpdateItemRequest replaces the quantity of a cart item.
type UpdateItemRequest struct {
	Quantity *int `json:"quantity"`
}

var errNoSession = errors.New("no session in request context")

// listProducts returns a page of products.
// @Summary List products
// @Produce json
// @Param category query string false "Category id"
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Page size, at most 50" default(12)
// @Success 200 {object} ProductsResponse
// @Failure 400 {object} ErrorResponse
// @Router /api/products [get]
func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "listProducts")
	defer span.End()

	page, err := queryInt(r, "page", 1)
	if err != nil {
		s.writeError(ctx, w, err)
		return
	}
	perPage, err := queryInt(r, "per_page", catalog.DefaultPerPage)
	if err != nil {
		s.writeError(ctx, w, err)
		return
	}
	result, err := s.Catalog.List(catalog.Filter{Category: r.URL.Query().Get("category")}, page, perPage)
	if err != nil {
		s.writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, ProductsResponse{
		Products:   result.Products,
		Categories: s.Catalog.Categories(),
		Total:      result.Total,
		Page:       result.Page,
		PerPage:    result.PerPage,
	})
}

// getProduct returns one product.
// @Summary Get product
// @Produce json
// @Param id path string true "Product ID"
// @Success 200 {object} catalog.Product
// @Failure 404 {object} ErrorResponse
// @Router /api/products/{id} [get]
func (s *Server) getProduct(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	ctx, span := otel.AddSpan(r.Context(), "getProduct", attribute.String("product.id", id))
	defer span.End()

	p, err := s.Catalog.Product(id)
	if err != nil {
		s.writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// listCategories returns all categories by display order.
// @Summary List categories
// @Produce json
// @Success 200 {array} catalog.Category
// @Router /api/categories [get]
func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	_, span := otel.AddSpan(r.Context(), "listCategories")
	defer span.End()

	writeJSON(w, http.StatusOK, s.Catalog.Categories())
}

// getCart returns the session's cart.
// @Summary Get cart
// @Produce json
// @Success 200 {object} cart.Cart
// @Router /api/cart [get]
func (s *Server) getCart(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "getCart")
	defer span.End()

	sid, ok := session.FromContext(ctx)
	if !ok {
		s.writeError(ctx, w, errNoSession)
		return
	}
	c, err := s.Carts.Get(ctx, sid)
	if err != nil {
		s.writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// addToCart adds a product, incrementing an existing item.
// @Summary Add to cart
// @Accept json
// @Produce json
// @Param item body AddItemRequest true "Product and quantity"
// @Success 201 {object} cart.Cart
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/cart [post]
func (s *Server) addToCart(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "addToCart")
	defer span.End()

	sid, ok := session.FromContext(ctx)
	if !ok {
		s.writeError(ctx, w, errNoSession)
		return
	}
	var req AddItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(ctx, w, err)
		return
	}
	if req.ProductID == "" {
		s.writeError(ctx, w, badRequestf("product_id is required"))
		return
	}
	if req.Quantity == nil {
		s.writeError(ctx, w, badRequestf("quantity is required"))
		return
	}
	span.SetAttributes(attribute.String("product.id", req.ProductID), attribute.Int("quantity", *req.Quantity))

	c, err := s.Carts.AddItem(ctx, sid, req.ProductID, *req.Quantity)
	if err != nil {
		s.writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// updateCartItem replaces an item's quantity; zero removes it.
// @Summary Update cart item
// @Accept json
// @Produce json
// @Param itemId path string true "Product ID"
// @Param item body UpdateItemRequest true "Quantity"
// @Success 200 {object} cart.Cart
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/cart/{itemId} [put]
func (s *Server) updateCartItem(w http.ResponseWriter, r *http.Request) {
	itemID := mux.Vars(r)["itemId"]
	ctx, span := otel.AddSpan(r.Context(), "updateCartItem", attribute.String("product.id", itemID))
	defer span.End()

	sid, ok := session.FromContext(ctx)
	if !ok {
		s.writeError(ctx, w, errNoSession)
		return
	}
	var req UpdateItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(ctx, w, err)
		return
	}
	if req.Quantity == nil {
		s.writeError(ctx, w, badRequestf("quantity is required"))
		return
	}

	c, err := s.Carts.SetQuantity(ctx, sid, itemID, *req.Quantity)
	if err != nil {
		s.writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// removeCartItem drops an item. Removing an absent item succeeds.
// @Summary Remove cart item
// @Produce json
// @Param itemId path string true "Product ID"
// @Success 200 {object} cart.Cart
// @Router /api/cart/{itemId} [delete]
func (s *Server) removeCartItem(w http.ResponseWriter, r *http.Request) {
	itemID := mux.Vars(r)["itemId"]
	ctx, span := otel.AddSpan(r.Context(), "removeCartItem", attribute.String("product.id", itemID))
	defer span.End()

	sid, ok := session.FromContext(ctx)
	if !ok {
		s.writeError(ctx, w, errNoSession)
		return
	}
	c, err := s.Carts.RemoveItem(ctx, sid, itemID)
	if err != nil {
		s.writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// createOrder checks out the session's cart.
// @Summary Place order
// @Accept json
// @Produce json
// @Param checkout body order.CheckoutRequest true "Customer and payment details"
// @Success 201 {object} order.Order
// @Failure 400 {object} ErrorResponse
// @Router /api/orders [post]
func (s *Server) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "createOrder")
	defer span.End()

	sid, ok := session.FromContext(ctx)
	if !ok {
		s.writeError(ctx, w, errNoSession)
		return
	}
	var req order.CheckoutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(ctx, w, err)
		return
	}
	o, err := s.Orders.CreateOrder(ctx, sid, req)
	if err != nil {
		s.writeError(ctx, w, err)
		return
	}
	span.SetAttributes(attribute.String("order.id", o.ID))
	writeJSON(w, http.StatusCreated, o)
}

// listOrders returns the orders placed in this session, newest first.
// @Summary List session orders
// @Produce json
// @Success 200 {array} order.Order
// @Router /api/orders [get]
func (s *Server) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "listOrders")
	defer span.End()

	sid, ok := session.FromContext(ctx)
	if !ok {
		s.writeError(ctx, w, errNoSession)
		return
	}
	orders, err := s.Orders.ListOrders(ctx, sid)
	if err != nil {
		s.writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

// getOrder returns an order by id.
// @Summary Get order
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} order.Order
// @Failure 404 {object} ErrorResponse
// @Router /api/orders/{id} [get]
func (s *Server) getOrder(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	ctx, span := otel.AddSpan(r.Context(), "getOrder", attribute.String("order.id", id))
	defer span.End()

	o, err := s.Orders.GetOrder(ctx, id)
	if err != nil {
		s.writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"coffeeshop/pkg/cart"
	"coffeeshop/pkg/catalog"
	"coffeeshop/pkg/order"
)

const maxBodyBytes = 1 << 20

// ErrorBody describes a failed request.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// badRequest marks malformed input detected by the handlers themselves.
type badRequest struct {
	msg string
}

func (e *badRequest) Error() string { return e.msg }

func badRequestf(format string, args ...any) error {
	return &badRequest{msg: fmt.Sprintf(format, args...)}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors to a status code and error body.
func (s *Server) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	status, body := classify(err)
	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	if status >= http.StatusInternalServerError {
		span.SetStatus(codes.Error, err.Error())
		s.Log.Error(ctx, "request failed", "error", err)
	}
	writeJSON(w, status, ErrorResponse{Error: body})
}

func classify(err error) (int, ErrorBody) {
	var verr *order.ValidationError
	var breq *badRequest
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, ErrorBody{Code: "validation_error", Message: "checkout data is invalid", Details: verr.Fields}
	case errors.As(err, &breq):
		return http.StatusBadRequest, ErrorBody{Code: "bad_request", Message: breq.msg}
	case errors.Is(err, catalog.ErrProductNotFound),
		errors.Is(err, cart.ErrItemNotInCart),
		errors.Is(err, order.ErrNotFound):
		return http.StatusNotFound, ErrorBody{Code: "not_found", Message: err.Error()}
	case errors.Is(err, catalog.ErrUnknownCategory):
		return http.StatusBadRequest, ErrorBody{Code: "bad_request", Message: err.Error()}
	case errors.Is(err, cart.ErrInvalidQuantity):
		return http.StatusBadRequest, ErrorBody{Code: "invalid_quantity", Message: err.Error()}
	case errors.Is(err, cart.ErrOutOfStock):
		return http.StatusBadRequest, ErrorBody{Code: "out_of_stock", Message: err.Error()}
	case errors.Is(err, order.ErrEmptyCart):
		return http.StatusBadRequest, ErrorBody{Code: "empty_cart", Message: err.Error()}
	}
	return http.StatusInternalServerError, ErrorBody{Code: "internal", Message: "internal server error"}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return badRequestf("invalid JSON body: %v", err)
	}
	return nil
}

// queryInt reads a positive integer query parameter, returning def when it
// is absent.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, badRequestf("%s must be a positive integer", name)
	}
	return n, nil
}

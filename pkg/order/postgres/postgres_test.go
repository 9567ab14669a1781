package postgres

import (
	"context"
	"database/sql/driver"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coffeeshop/pkg/order"
)

var columns = []string{"id", "order_number", "session_id", "items", "customer_info", "subtotal", "tax", "shipping", "total", "status", "created_at", "tracking_number"}

func sampleOrder() order.Order {
	return order.Order{
		ID:          "o1",
		OrderNumber: "CS-20261017-ABCDEF12",
		SessionID:   "s1",
		Items: []order.Line{{
			ProductID:    "5",
			ProductName:  "House Blend Ground",
			Quantity:     2,
			UnitPrice:    decimal.RequireFromString("9.99"),
			LineSubtotal: decimal.RequireFromString("19.98"),
		}},
		CustomerInfo: order.CustomerInfo{Name: "Ada", Email: "ada@example.com"},
		Subtotal:     decimal.RequireFromString("19.98"),
		Tax:          decimal.RequireFromString("1.75"),
		Shipping:     decimal.RequireFromString("5.99"),
		Total:        decimal.RequireFromString("27.72"),
		Status:       order.StatusPending,
		CreatedAt:    time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC),
	}
}

func orderRow(rows *sqlmock.Rows, o order.Order) *sqlmock.Rows {
	return rows.AddRow(
		o.ID, o.OrderNumber, o.SessionID,
		[]byte(`[{"product_id":"5","product_name":"House Blend Ground","quantity":2,"unit_price":9.99,"line_subtotal":19.98}]`),
		[]byte(`{"name":"Ada","email":"ada@example.com","shipping_address":{"line1":"","city":"","state":"","postal_code":""}}`),
		"19.98", "1.75", "5.99", "27.72", "pending", o.CreatedAt, nil,
	)
}

func TestCreate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	o := sampleOrder()
	mock.ExpectExec(regexp.QuoteMeta(insertQuery)).
		WithArgs(o.ID, o.OrderNumber, o.SessionID, sqlmock.AnyArg(), sqlmock.AnyArg(),
			"19.98", "1.75", "5.99", "27.72", "pending", o.CreatedAt, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, New(db).Create(context.Background(), o))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGet(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	want := sampleOrder()
	mock.ExpectQuery(regexp.QuoteMeta(getQuery)).WithArgs("o1").
		WillReturnRows(orderRow(sqlmock.NewRows(columns), want))

	got, err := New(db).Get(context.Background(), "o1")
	require.NoError(t, err)
	assert.Equal(t, want.OrderNumber, got.OrderNumber)
	assert.Equal(t, "House Blend Ground", got.Items[0].ProductName)
	assert.True(t, got.Total.Equal(want.Total))
	assert.True(t, got.Items[0].UnitPrice.Equal(want.Items[0].UnitPrice))
	assert.Equal(t, order.StatusPending, got.Status)
	assert.Nil(t, got.TrackingNumber)
	assert.Equal(t, "ada@example.com", got.CustomerInfo.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(getQuery)).WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(columns))

	_, err = New(db).Get(context.Background(), "missing")
	assert.ErrorIs(t, err, order.ErrNotFound)
}

func TestListBySession(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	newer, older := sampleOrder(), sampleOrder()
	newer.ID, newer.CreatedAt = "o2", newer.CreatedAt.Add(time.Hour)
	rows := sqlmock.NewRows(columns)
	orderRow(rows, newer)
	orderRow(rows, older)
	mock.ExpectQuery(regexp.QuoteMeta(listQuery)).WithArgs("s1").WillReturnRows(rows)

	list, err := New(db).ListBySession(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "o2", list[0].ID)
	assert.Equal(t, "o1", list[1].ID)
}

func TestMigrate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS orders").WillReturnResult(driver.ResultNoRows)
	require.NoError(t, New(db).Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

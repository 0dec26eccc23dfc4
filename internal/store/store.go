// Package store persists products to PostgreSQL.
//
// The store owns a single write path, [ProductStore.Create], which inserts one
// row into the products table and returns the stored product. Failures are
// returned as *[Error] values carrying an [ErrorKind] so callers can tell
// validation, constraint and connectivity problems apart.
package store

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/productimport/internal/product"
)

// DBTX is the single-row query the store needs.
// Satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Price column is numeric(10,2).
const (
	priceScale = 2
	maxPrice   = 99999999.99
)

const insertProduct = `
INSERT INTO products (name, description, stock_level, price, discontinued_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, now(), now())
RETURNING id, created_at`

// CreateParams are the typed column values for one insert.
type CreateParams struct {
	Name           pgtype.Text
	Description    pgtype.Text
	StockLevel     pgtype.Int4
	Price          pgtype.Numeric
	DiscontinuedAt pgtype.Timestamptz
}

// ProductStore writes products through a DBTX.
type ProductStore struct {
	db DBTX
}

// New returns a ProductStore using db.
func New(db DBTX) *ProductStore {
	return &ProductStore{db: db}
}

// Create inserts one product. The returned error, if any, is an *Error.
func (s *ProductStore) Create(ctx context.Context, d product.Draft) (product.Product, error) {
	params, err := BuildCreateParams(d)
	if err != nil {
		return product.Product{}, &Error{Kind: KindValidation, Name: d.Name, Err: err}
	}

	var (
		id        int64
		createdAt time.Time
	)
	err = s.db.QueryRow(ctx, insertProduct,
		params.Name,
		params.Description,
		params.StockLevel,
		params.Price,
		params.DiscontinuedAt,
	).Scan(&id, &createdAt)
	if err != nil {
		return product.Product{}, &Error{Kind: Classify(err), Name: d.Name, Err: err}
	}

	return product.Product{ID: id, Draft: d, CreatedAt: createdAt}, nil
}

// ErrInvalidDraft is wrapped by BuildCreateParams when a value cannot be stored.
var ErrInvalidDraft = errors.New("invalid product")

// BuildCreateParams converts a draft into column values. Name and description
// are stored verbatim; price is rounded to cents.
func BuildCreateParams(d product.Draft) (CreateParams, error) {
	if d.StockLevel > math.MaxInt32 || d.StockLevel < math.MinInt32 {
		return CreateParams{}, fmt.Errorf("%w: stock_level %d out of range", ErrInvalidDraft, d.StockLevel)
	}
	if math.Abs(d.Price) > maxPrice {
		return CreateParams{}, fmt.Errorf("%w: price %v out of range", ErrInvalidDraft, d.Price)
	}

	var price pgtype.Numeric
	if err := price.Scan(strconv.FormatFloat(d.Price, 'f', priceScale, 64)); err != nil {
		return CreateParams{}, fmt.Errorf("%w: price %v: %v", ErrInvalidDraft, d.Price, err)
	}

	params := CreateParams{
		Name:        pgtype.Text{String: d.Name, Valid: true},
		Description: pgtype.Text{String: d.Description, Valid: true},
		StockLevel:  pgtype.Int4{Int32: int32(d.StockLevel), Valid: true},
		Price:       price,
	}
	if d.DiscontinuedAt != nil {
		params.DiscontinuedAt = pgtype.Timestamptz{Time: *d.DiscontinuedAt, Valid: true}
	}
	return params, nil
}

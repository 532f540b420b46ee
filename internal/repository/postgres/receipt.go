package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/utafrali/wholesale-storefront/internal/domain"
	"github.com/utafrali/wholesale-storefront/internal/repository"
	"github.com/utafrali/wholesale-storefront/pkg/database"
	apperrors "github.com/utafrali/wholesale-storefront/pkg/errors"
)

const uniqueViolation = "23505"

// ReceiptRepository implements repository.ReceiptRepository using PostgreSQL.
type ReceiptRepository struct {
	pool database.DBTX
}

// NewReceiptRepository creates a PostgreSQL-backed receipt journal.
func NewReceiptRepository(pool database.DBTX) *ReceiptRepository {
	return &ReceiptRepository{pool: pool}
}

const insertReceiptQuery = `
		INSERT INTO order_receipts (invoice, wholeseller_id, reseller_id, total_price, item_count, products, placed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

// Create stores a receipt. A second receipt for the same invoice is a conflict.
func (r *ReceiptRepository) Create(ctx context.Context, rc *repository.Receipt) (err error) {
	if rc.Order == nil {
		return apperrors.InvalidInput("receipt has no order")
	}

	ctx, end := database.TraceQuery(ctx, "CreateReceipt", insertReceiptQuery)
	defer func() { end(err) }()

	products, err := json.Marshal(rc.Order.Products)
	if err != nil {
		return fmt.Errorf("marshal receipt products: %w", err)
	}

	_, err = r.pool.Exec(ctx, insertReceiptQuery,
		rc.Invoice,
		rc.Order.WholesellerID,
		rc.Order.ResellerID,
		rc.TotalPrice,
		rc.ItemCount,
		products,
		rc.PlacedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return apperrors.Conflict(fmt.Sprintf("receipt for invoice %s already exists", rc.Invoice))
		}
		return fmt.Errorf("insert receipt: %w", err)
	}
	return nil
}

const selectReceiptColumns = `
		SELECT invoice, wholeseller_id, reseller_id, total_price, item_count, products, placed_at
		FROM order_receipts`

// GetByInvoice retrieves a receipt by invoice.
func (r *ReceiptRepository) GetByInvoice(ctx context.Context, invoice string) (_ *repository.Receipt, err error) {
	query := selectReceiptColumns + ` WHERE invoice = $1`
	ctx, end := database.TraceQuery(ctx, "GetReceiptByInvoice", query)
	defer func() { end(err) }()

	rc, err := scanReceipt(r.pool.QueryRow(ctx, query, invoice))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("receipt", invoice)
		}
		return nil, fmt.Errorf("get receipt %s: %w", invoice, err)
	}
	return rc, nil
}

// List returns up to limit receipts, newest first.
func (r *ReceiptRepository) List(ctx context.Context, limit int) (_ []repository.Receipt, err error) {
	query := selectReceiptColumns + ` ORDER BY placed_at DESC LIMIT $1`
	ctx, end := database.TraceQuery(ctx, "ListReceipts", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list receipts: %w", err)
	}
	defer rows.Close()

	receipts := make([]repository.Receipt, 0, limit)
	for rows.Next() {
		rc, err := scanReceipt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan receipt: %w", err)
		}
		receipts = append(receipts, *rc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate receipts: %w", err)
	}
	return receipts, nil
}

func scanReceipt(row pgx.Row) (*repository.Receipt, error) {
	var (
		rc       repository.Receipt
		order    domain.Order
		products []byte
	)
	if err := row.Scan(
		&rc.Invoice,
		&order.WholesellerID,
		&order.ResellerID,
		&rc.TotalPrice,
		&rc.ItemCount,
		&products,
		&rc.PlacedAt,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(products, &order.Products); err != nil {
		return nil, fmt.Errorf("unmarshal receipt products: %w", err)
	}
	order.Invoice = rc.Invoice
	order.TotalPrice = rc.TotalPrice
	rc.Order = &order
	return &rc, nil
}

// Package store implements the Order Store: the durable record of orders
// and their audit trail, backed by Postgres via pkg/database.DB (grounded on
// pkg/database/postgres.go's Transaction helper and query-metrics wrapper).
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/swapengine/engine/internal/domain"
	"github.com/swapengine/engine/pkg/database"
)

// OrderStore is the sole owner of persisted order rows and audit records.
type OrderStore struct {
	db *database.DB
}

// New creates an OrderStore over an already-connected database.
func New(db *database.DB) *OrderStore {
	return &OrderStore{db: db}
}

// Create persists a new order row, already constructed as status=pending,
// retryCount=0 by domain.NewOrder.
func (s *OrderStore) Create(ctx context.Context, order *domain.Order) error {
	const q = `
		INSERT INTO orders (
			id, token_in, token_out, amount, status, slippage_tolerance,
			max_retries, retry_count, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`
	_, err := s.db.ExecContext(ctx, q,
		order.ID, order.TokenIn, order.TokenOut, order.Amount, order.Status,
		order.SlippageTolerance, order.MaxRetries, order.RetryCount,
		order.CreatedAt, order.UpdatedAt)
	if err != nil {
		return domain.Wrap(domain.KindInternal, "create order", err)
	}
	return nil
}

// FindByID returns the order, or a NotFound domain error.
func (s *OrderStore) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return s.findByIDTx(ctx, s.db.DB, id, false)
}

func (s *OrderStore) findByIDTx(ctx context.Context, q querier, id uuid.UUID, forUpdate bool) (*domain.Order, error) {
	query := selectOrderQuery
	if forUpdate {
		query += " FOR UPDATE"
	}
	row := q.QueryRowContext(ctx, query, id)
	order, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return nil, domain.NewError(domain.KindNotFound, fmt.Sprintf("order %s not found", id))
	}
	if err != nil {
		return nil, domain.Wrap(domain.KindInternal, "find order", err)
	}
	return order, nil
}

const selectOrderQuery = `
	SELECT id, token_in, token_out, amount, status, slippage_tolerance,
	       max_retries, retry_count, selected_venue, executed_price,
	       transaction_hash, error_message, confirmed_at, created_at, updated_at
	FROM orders WHERE id = $1`

// querier abstracts over *sql.DB and *sql.Tx for shared scan helpers.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// rowScanner is implemented by both *sql.Row and *sql.Rows, letting FindByID
// and FindAll share one scan routine.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var o domain.Order
	var selectedVenue, txHash, errMsg sql.NullString
	var executedPrice sql.NullString
	var confirmedAt sql.NullTime
	var amount, slippage string

	err := row.Scan(
		&o.ID, &o.TokenIn, &o.TokenOut, &amount, &o.Status, &slippage,
		&o.MaxRetries, &o.RetryCount, &selectedVenue, &executedPrice,
		&txHash, &errMsg, &confirmedAt, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.Amount, _ = decimal.NewFromString(amount)
	o.SlippageTolerance, _ = decimal.NewFromString(slippage)
	if selectedVenue.Valid {
		o.SelectedVenue = selectedVenue.String
	}
	if executedPrice.Valid {
		o.ExecutedPrice, _ = decimal.NewFromString(executedPrice.String)
	}
	if txHash.Valid {
		o.TransactionHash = txHash.String
	}
	if errMsg.Valid {
		o.ErrorMessage = errMsg.String
	}
	if confirmedAt.Valid {
		t := confirmedAt.Time
		o.ConfirmedAt = &t
	}
	return &o, nil
}

// OrderPatch is a partial update applied atomically by Update.
type OrderPatch struct {
	Status          *domain.OrderStatus
	RetryCount      *int
	SelectedVenue   *string
	ExecutedPrice   *decimal.Decimal
	TransactionHash *string
	ErrorMessage    *string
	ConfirmedAt     *time.Time
}

// Update atomically applies a partial update under a row lock, bumping
// updatedAt, so two concurrent retries can never both observe the same
// pre-update retryCount, so a concurrent update can never be silently lost.
func (s *OrderStore) Update(ctx context.Context, id uuid.UUID, patch OrderPatch) (*domain.Order, error) {
	var result *domain.Order
	err := s.db.Transaction(ctx, func(tx *sql.Tx) error {
		current, err := s.findByIDTx(ctx, txQuerier{tx}, id, true)
		if err != nil {
			return err
		}
		if current.Status.IsTerminal() {
			return domain.NewError(domain.KindConflict, fmt.Sprintf("order %s already in terminal state %s", id, current.Status))
		}
		if patch.Status != nil && !domain.CanTransition(current.Status, *patch.Status) {
			return domain.NewError(domain.KindConflict, fmt.Sprintf("cannot transition %s -> %s", current.Status, *patch.Status))
		}

		if patch.Status != nil {
			current.Status = *patch.Status
		}
		if patch.RetryCount != nil {
			current.RetryCount = *patch.RetryCount
		}
		if patch.SelectedVenue != nil {
			current.SelectedVenue = *patch.SelectedVenue
		}
		if patch.ExecutedPrice != nil {
			current.ExecutedPrice = *patch.ExecutedPrice
		}
		if patch.TransactionHash != nil {
			current.TransactionHash = *patch.TransactionHash
		}
		if patch.ErrorMessage != nil {
			current.ErrorMessage = *patch.ErrorMessage
		}
		if patch.ConfirmedAt != nil {
			current.ConfirmedAt = patch.ConfirmedAt
		}
		current.UpdatedAt = time.Now().UTC()

		const q = `
			UPDATE orders SET
				status=$1, retry_count=$2, selected_venue=$3, executed_price=$4,
				transaction_hash=$5, error_message=$6, confirmed_at=$7, updated_at=$8
			WHERE id=$9`
		_, execErr := tx.ExecContext(ctx, q,
			current.Status, current.RetryCount, nullString(current.SelectedVenue),
			nullDecimal(current.ExecutedPrice), nullString(current.TransactionHash),
			nullString(current.ErrorMessage), current.ConfirmedAt, current.UpdatedAt, id)
		if execErr != nil {
			return domain.Wrap(domain.KindInternal, "update order", execErr)
		}
		result = current
		return nil
	})
	return result, err
}

// UpdateStatus is a convenience wrapper rejecting forbidden transitions
// before delegating to Update.
func (s *OrderStore) UpdateStatus(ctx context.Context, id uuid.UUID, newStatus domain.OrderStatus) (*domain.Order, error) {
	var result *domain.Order
	err := s.db.Transaction(ctx, func(tx *sql.Tx) error {
		current, err := s.findByIDTx(ctx, txQuerier{tx}, id, true)
		if err != nil {
			return err
		}
		if !domain.CanTransition(current.Status, newStatus) {
			return domain.NewError(domain.KindConflict, fmt.Sprintf("cannot transition %s -> %s", current.Status, newStatus))
		}
		current.Status = newStatus
		current.UpdatedAt = time.Now().UTC()

		const q = `UPDATE orders SET status=$1, updated_at=$2 WHERE id=$3`
		if _, execErr := tx.ExecContext(ctx, q, current.Status, current.UpdatedAt, id); execErr != nil {
			return domain.Wrap(domain.KindInternal, "update order status", execErr)
		}
		result = current
		return nil
	})
	return result, err
}

// Cancel transitions a non-terminal order to cancelled, returning a conflict
// error if the order is already completed, failed, or cancelled.
func (s *OrderStore) Cancel(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	var result *domain.Order
	err := s.db.Transaction(ctx, func(tx *sql.Tx) error {
		current, err := s.findByIDTx(ctx, txQuerier{tx}, id, true)
		if err != nil {
			return err
		}
		if current.Status.IsTerminal() {
			return domain.NewError(domain.KindConflict, "order already in a terminal state")
		}
		current.Status = domain.StatusCancelled
		current.UpdatedAt = time.Now().UTC()
		const q = `UPDATE orders SET status=$1, updated_at=$2 WHERE id=$3`
		if _, execErr := tx.ExecContext(ctx, q, current.Status, current.UpdatedAt, id); execErr != nil {
			return domain.Wrap(domain.KindInternal, "cancel order", execErr)
		}
		result = current
		return nil
	})
	return result, err
}

// Delete hard-deletes an order. Only permitted when pending and un-enqueued;
// callers (the API's createOrder rollback after a failed enqueue) are responsible for
// only calling this before any job has ever been created for the order.
func (s *OrderStore) Delete(ctx context.Context, id uuid.UUID) error {
	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		current, err := s.findByIDTx(ctx, txQuerier{tx}, id, true)
		if err != nil {
			return err
		}
		if current.Status != domain.StatusPending {
			return domain.NewError(domain.KindConflict, "delete only permitted for pending orders")
		}
		if _, execErr := tx.ExecContext(ctx, `DELETE FROM orders WHERE id=$1`, id); execErr != nil {
			return domain.Wrap(domain.KindInternal, "delete order", execErr)
		}
		return nil
	})
}

// Count returns the number of orders matching filter.
func (s *OrderStore) Count(ctx context.Context, filter domain.OrderFilter) (int, error) {
	where, args := buildWhere(filter)
	q := "SELECT COUNT(*) FROM orders" + where
	var count int
	if err := s.db.QueryRowContext(ctx, q, args...).Scan(&count); err != nil {
		return 0, domain.Wrap(domain.KindInternal, "count orders", err)
	}
	return count, nil
}

// FindAll returns orders matching filter, paginated and sorted.
func (s *OrderStore) FindAll(ctx context.Context, filter domain.OrderFilter) ([]*domain.Order, error) {
	where, args := buildWhere(filter)
	sortCol := "created_at"
	switch filter.SortBy {
	case "amount", "status", "updated_at":
		sortCol = filter.SortBy
	}
	dir := "ASC"
	if filter.SortDesc {
		dir = "DESC"
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	q := fmt.Sprintf("%s%s ORDER BY %s %s LIMIT $%d OFFSET $%d",
		findAllBaseQuery, where, sortCol, dir, len(args)+1, len(args)+2)
	args = append(args, limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, domain.Wrap(domain.KindInternal, "find orders", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		o, scanErr := scanOrder(rows)
		if scanErr != nil {
			return nil, domain.Wrap(domain.KindInternal, "scan order", scanErr)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

const findAllBaseQuery = `
	SELECT id, token_in, token_out, amount, status, slippage_tolerance,
	       max_retries, retry_count, selected_venue, executed_price,
	       transaction_hash, error_message, confirmed_at, created_at, updated_at
	FROM orders`

func buildWhere(filter domain.OrderFilter) (string, []interface{}) {
	var clauses []string
	var args []interface{}
	add := func(clause string, value interface{}) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}
	if filter.Status != nil {
		add("status = $%d", *filter.Status)
	}
	if filter.TokenIn != nil {
		add("token_in = $%d", *filter.TokenIn)
	}
	if filter.TokenOut != nil {
		add("token_out = $%d", *filter.TokenOut)
	}
	if filter.MinAmount != nil {
		add("amount >= $%d", *filter.MinAmount)
	}
	if filter.MaxAmount != nil {
		add("amount <= $%d", *filter.MaxAmount)
	}
	if filter.CreatedAfter != nil {
		add("created_at >= $%d", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		add("created_at <= $%d", *filter.CreatedBefore)
	}
	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// txQuerier adapts *sql.Tx to the querier interface used by findByIDTx.
type txQuerier struct{ tx *sql.Tx }

func (t txQuerier) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return t.tx.QueryRowContext(ctx, query, args...)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullDecimal(d decimal.Decimal) sql.NullString {
	if d.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/bigmove/backend/internal/apperr"
	"github.com/bigmove/backend/internal/models"
)

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create stores the order, reserves its delivery slot and queues the
// order.created event in one transaction. capacity bounds the bookings per
// loading and per unloading time on the date.
func (r *OrderRepository) Create(ctx context.Context, o *models.Order, capacity int) error {
	data, err := json.Marshal(o.Draft)
	if err != nil {
		return fmt.Errorf("marshal order data: %w", err)
	}
	event, err := json.Marshal(models.NewOrderEvent(models.EventOrderCreated, o))
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}
	info := o.Draft.DeliveryInfo

	return r.inTx(ctx, func(tx *sql.Tx) error {
		// serialises bookings of the same date
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, info.Date); err != nil {
			return fmt.Errorf("lock delivery date: %w", err)
		}
		if err := checkCapacity(ctx, tx, info, capacity); err != nil {
			return err
		}

		query := `INSERT INTO orders (id, status, order_data, total_price, payment_key, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`
		if _, err := tx.ExecContext(ctx, query,
			o.ID, o.Status, data, o.TotalPrice, o.PaymentKey, o.CreatedAt, o.UpdatedAt,
		); err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		query = `INSERT INTO delivery_bookings (order_id, delivery_date, loading_time, unloading_time)
			VALUES ($1,$2,$3,$4)`
		if _, err := tx.ExecContext(ctx, query, o.ID, info.Date, info.LoadingTime, info.UnloadingTime); err != nil {
			return fmt.Errorf("create booking: %w", err)
		}

		return createTask(ctx, tx, event)
	})
}

func checkCapacity(ctx context.Context, tx *sql.Tx, info models.DeliveryInfo, capacity int) error {
	query := `SELECT
			COUNT(*) FILTER (WHERE b.loading_time = $2),
			COUNT(*) FILTER (WHERE b.unloading_time = $3)
		FROM delivery_bookings b
		JOIN orders o ON o.id = b.order_id
		WHERE b.delivery_date = $1 AND o.status <> $4`
	var loading, unloading int
	if err := tx.QueryRowContext(ctx, query,
		info.Date, info.LoadingTime, info.UnloadingTime, models.OrderStatusCancelled,
	).Scan(&loading, &unloading); err != nil {
		return fmt.Errorf("count bookings: %w", err)
	}
	if loading >= capacity || unloading >= capacity {
		return fmt.Errorf("%s %s/%s: %w", info.Date, info.LoadingTime, info.UnloadingTime, apperr.ErrSlotUnavailable)
	}
	return nil
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	query := `SELECT id, status, order_data, total_price, payment_key, created_at, updated_at
		FROM orders WHERE id=$1`

	o, err := scanOrder(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("order %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get order by id: %w", err)
	}
	return o, nil
}

// UpdateStatus moves the order from one status to another and queues the
// matching event. It fails with ErrInvalidTransition when the stored status
// is not from.
func (r *OrderRepository) UpdateStatus(ctx context.Context, o *models.Order, from models.OrderStatus, eventType models.EventType) error {
	event, err := json.Marshal(models.NewOrderEvent(eventType, o))
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}

	return r.inTx(ctx, func(tx *sql.Tx) error {
		query := `UPDATE orders SET status=$1, payment_key=$2, updated_at=$3
			WHERE id=$4 AND status=$5`
		res, err := tx.ExecContext(ctx, query, o.Status, o.PaymentKey, o.UpdatedAt, o.ID, from)
		if err != nil {
			return fmt.Errorf("update order: %w", err)
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			return fmt.Errorf("order %s not %s: %w", o.ID, from, apperr.ErrInvalidTransition)
		}
		return createTask(ctx, tx, event)
	})
}

// List pages through orders by id. An empty cursor starts from the beginning.
func (r *OrderRepository) List(ctx context.Context, cursor string, limit int64, status models.OrderStatus) ([]*models.Order, error) {
	if limit <= 0 {
		limit = 10
	}
	var filters []string
	var args []any
	idx := 1

	query := `SELECT id, status, order_data, total_price, payment_key, created_at, updated_at
		FROM orders`
	if cursor != "" {
		filters = append(filters, fmt.Sprintf("id>$%d", idx))
		args = append(args, cursor)
		idx++
	}
	if status != "" {
		filters = append(filters, fmt.Sprintf("status=$%d", idx))
		args = append(args, status)
		idx++
	}
	if len(filters) > 0 {
		query += " WHERE " + strings.Join(filters, " AND ")
	}
	query += " ORDER BY id ASC"
	query += fmt.Sprintf(" LIMIT $%d", idx)
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	res := []*models.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		res = append(res, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	return res, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(s scanner) (*models.Order, error) {
	o := &models.Order{}
	var data []byte
	if err := s.Scan(&o.ID, &o.Status, &data, &o.TotalPrice, &o.PaymentKey, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &o.Draft); err != nil {
		return nil, fmt.Errorf("decode order data: %w", err)
	}
	return o, nil
}

func (r *OrderRepository) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

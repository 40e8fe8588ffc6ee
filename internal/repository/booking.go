package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/bigmove/backend/internal/models"
)

type BookingRepository struct {
	db *sql.DB
}

func NewBookingRepository(db *sql.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// CountByDate counts live bookings per loading and per unloading time.
func (r *BookingRepository) CountByDate(ctx context.Context, date string) (map[string]int, map[string]int, error) {
	loading, err := r.countBy(ctx, "loading_time", date)
	if err != nil {
		return nil, nil, err
	}
	unloading, err := r.countBy(ctx, "unloading_time", date)
	if err != nil {
		return nil, nil, err
	}
	return loading, unloading, nil
}

func (r *BookingRepository) countBy(ctx context.Context, column, date string) (map[string]int, error) {
	query := fmt.Sprintf(`SELECT b.%[1]s, COUNT(*)
		FROM delivery_bookings b
		JOIN orders o ON o.id = b.order_id
		WHERE b.delivery_date = $1 AND o.status <> $2
		GROUP BY b.%[1]s`, column)

	rows, err := r.db.QueryContext(ctx, query, date, models.OrderStatusCancelled)
	if err != nil {
		return nil, fmt.Errorf("count bookings by %s: %w", column, err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var slot string
		var n int
		if err := rows.Scan(&slot, &n); err != nil {
			return nil, fmt.Errorf("scan booking count: %w", err)
		}
		counts[slot] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate booking counts: %w", err)
	}
	return counts, nil
}

package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bigmove/backend/internal/apperr"
	"github.com/bigmove/backend/internal/models"
)

type ItemRepository struct {
	db *sql.DB
}

func NewItemRepository(db *sql.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

func (r *ItemRepository) ListByCategory(ctx context.Context, categoryID string) ([]models.Item, error) {
	query := `SELECT id, category_id, name, price, description, image_url
		FROM items WHERE category_id=$1 ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query, categoryID)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	items := []models.Item{}
	for rows.Next() {
		var it models.Item
		if err := rows.Scan(&it.ID, &it.CategoryID, &it.Name, &it.Price, &it.Description, &it.ImageURL); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return items, nil
}

func (r *ItemRepository) GetDetails(ctx context.Context, categoryID, itemID string) (*models.ItemDetail, error) {
	query := `SELECT id, category_id, name, price, description, image_url, details
		FROM items WHERE category_id=$1 AND id=$2`

	d := &models.ItemDetail{}
	var raw []byte
	err := r.db.QueryRowContext(ctx, query, categoryID, itemID).Scan(
		&d.ID, &d.CategoryID, &d.Name, &d.Price, &d.Description, &d.ImageURL, &raw,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("item %s/%s: %w", categoryID, itemID, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get item details: %w", err)
	}
	if err := json.Unmarshal(raw, &d.Details); err != nil {
		return nil, fmt.Errorf("decode item details: %w", err)
	}
	return d, nil
}

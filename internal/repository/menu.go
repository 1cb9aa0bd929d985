package repository

import (
	"context"
	"strings"

	apperrors "pizza-service/internal/common/errors"
	"pizza-service/internal/models"
)

const (
	insertMenuItemQuery = `INSERT INTO menu_items (id, title, description, image, price) VALUES ($1, $2, $3, $4, $5)`
	selectMenuQuery     = `SELECT id, title, description, image, price FROM menu_items ORDER BY seq`
)

func (r *Repository) AddMenuItem(ctx context.Context, item models.MenuItem) (models.MenuItem, error) {
	item.Title = strings.TrimSpace(item.Title)
	if item.Title == "" {
		return models.MenuItem{}, apperrors.NewValidationError("menu item title is required")
	}
	if item.Price.IsNegative() {
		return models.MenuItem{}, apperrors.NewValidationError("menu item price must not be negative")
	}

	item.ID = r.newID()
	if _, err := r.db.ExecContext(ctx, insertMenuItemQuery, item.ID, item.Title, item.Description, item.Image, item.Price); err != nil {
		return models.MenuItem{}, apperrors.NewInternalError("add menu item", err)
	}
	return item, nil
}

// GetMenu returns every item in creation order.
func (r *Repository) GetMenu(ctx context.Context) ([]models.MenuItem, error) {
	rows, err := r.db.QueryContext(ctx, selectMenuQuery)
	if err != nil {
		return nil, apperrors.NewInternalError("get menu", err)
	}
	defer rows.Close()

	menu := []models.MenuItem{}
	for rows.Next() {
		var item models.MenuItem
		if err := rows.Scan(&item.ID, &item.Title, &item.Description, &item.Image, &item.Price); err != nil {
			return nil, apperrors.NewInternalError("get menu", err)
		}
		menu = append(menu, item)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("get menu", err)
	}
	return menu, nil
}

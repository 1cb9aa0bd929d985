package repository

import (
	"context"
	"database/sql"
	"time"

	apperrors "pizza-service/internal/common/errors"
	"pizza-service/internal/models"

	"github.com/lib/pq"
)

const (
	storeInFranchiseStmt = `SELECT EXISTS (SELECT 1 FROM stores WHERE id = $1 AND franchise_id = $2)`
	selectMenuByIDs      = `SELECT id, title, price FROM menu_items WHERE id = ANY($1)`
	insertOrderQuery     = `INSERT INTO diner_orders (id, diner_id, franchise_id, store_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	insertOrderItemQuery = `INSERT INTO order_items (order_id, menu_id, description, price, position)
		VALUES ($1, $2, $3, $4, $5)`
	attachFulfillmentQuery = `UPDATE diner_orders SET status = $2, fulfillment_token = $3, report_url = $4
		WHERE id = $1 AND status = 'pending'`
	listOrdersQuery = `SELECT id, franchise_id, store_id, status,
		COALESCE(fulfillment_token, ''), COALESCE(report_url, ''), created_at
		FROM diner_orders WHERE diner_id = $1 ORDER BY seq DESC LIMIT $2 OFFSET $3`
	selectOrderItems = `SELECT order_id, menu_id, description, price FROM order_items
		WHERE order_id = ANY($1) ORDER BY order_id, position`
)

// AddOrder checks every reference and stores a pending order whose items
// copy the menu title and price as they are now.
func (r *Repository) AddOrder(ctx context.Context, dinerID string, spec models.OrderSpec) (models.Order, error) {
	if spec.FranchiseID == "" || spec.StoreID == "" {
		return models.Order{}, apperrors.NewValidationError("franchiseId and storeId are required")
	}
	if len(spec.Items) == 0 {
		return models.Order{}, apperrors.NewValidationError("order must contain at least one item")
	}

	order := models.Order{
		ID:          r.newID(),
		DinerID:     dinerID,
		FranchiseID: spec.FranchiseID,
		StoreID:     spec.StoreID,
		Status:      models.OrderPending,
		CreatedAt:   time.Now().UTC(),
	}

	err := r.withTx(ctx, "add order", func(tx *sql.Tx) error {
		ok, err := exists(ctx, tx, franchiseExistsStmt, spec.FranchiseID)
		if err != nil {
			return err
		}
		if !ok {
			return apperrors.NewNotFoundError("unknown franchise")
		}
		if ok, err = exists(ctx, tx, storeInFranchiseStmt, spec.StoreID, spec.FranchiseID); err != nil {
			return err
		}
		if !ok {
			return apperrors.NewNotFoundError("unknown store")
		}

		menu, err := menuSnapshot(ctx, tx, spec.Items)
		if err != nil {
			return err
		}
		order.Items = make([]models.OrderItem, 0, len(spec.Items))
		for _, it := range spec.Items {
			snap, found := menu[it.MenuID]
			if !found {
				return apperrors.NewNotFoundError("unknown menu item").WithMetadata("menuId", it.MenuID)
			}
			order.Items = append(order.Items, snap)
		}

		if _, err := tx.ExecContext(ctx, insertOrderQuery, order.ID, order.DinerID, order.FranchiseID,
			order.StoreID, string(order.Status), order.CreatedAt); err != nil {
			return err
		}
		for i, it := range order.Items {
			if _, err := tx.ExecContext(ctx, insertOrderItemQuery, order.ID, it.MenuID, it.Description, it.Price, i); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return models.Order{}, err
	}
	return order, nil
}

func menuSnapshot(ctx context.Context, tx *sql.Tx, items []models.OrderItemSpec) (map[string]models.OrderItem, error) {
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.MenuID)
	}

	rows, err := tx.QueryContext(ctx, selectMenuByIDs, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	menu := make(map[string]models.OrderItem, len(ids))
	for rows.Next() {
		var item models.OrderItem
		if err := rows.Scan(&item.MenuID, &item.Description, &item.Price); err != nil {
			return nil, err
		}
		menu[item.MenuID] = item
	}
	return menu, rows.Err()
}

// AttachFulfillment records the factory outcome on a pending order.
func (r *Repository) AttachFulfillment(ctx context.Context, orderID string, status models.OrderStatus, token, reportURL string) error {
	if status != models.OrderFulfilled && status != models.OrderFailed {
		return apperrors.NewValidationError("fulfillment status must be fulfilled or failed")
	}
	res, err := r.db.ExecContext(ctx, attachFulfillmentQuery, orderID, string(status), nullable(token), nullable(reportURL))
	if err != nil {
		return apperrors.NewInternalError("attach fulfillment", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NewNotFoundError("pending order not found")
	}
	return nil
}

// ListOrders returns one page of the diner's orders, newest first. Pages
// start at 1.
func (r *Repository) ListOrders(ctx context.Context, dinerID string, page, pageSize int) (models.OrderPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 1
	}
	result := models.OrderPage{DinerID: dinerID, Orders: []models.Order{}, Page: page}

	rows, err := r.db.QueryContext(ctx, listOrdersQuery, dinerID, pageSize, offset(page, pageSize))
	if err != nil {
		return models.OrderPage{}, apperrors.NewInternalError("list orders", err)
	}
	defer rows.Close()

	index := map[string]int{}
	var ids []string
	for rows.Next() {
		o := models.Order{DinerID: dinerID, Items: []models.OrderItem{}}
		var status string
		if err := rows.Scan(&o.ID, &o.FranchiseID, &o.StoreID, &status, &o.FulfillmentToken, &o.ReportURL, &o.CreatedAt); err != nil {
			return models.OrderPage{}, apperrors.NewInternalError("list orders", err)
		}
		o.Status = models.OrderStatus(status)
		index[o.ID] = len(result.Orders)
		ids = append(ids, o.ID)
		result.Orders = append(result.Orders, o)
	}
	if err := rows.Err(); err != nil {
		return models.OrderPage{}, apperrors.NewInternalError("list orders", err)
	}
	if len(ids) == 0 {
		return result, nil
	}

	itemRows, err := r.db.QueryContext(ctx, selectOrderItems, pq.Array(ids))
	if err != nil {
		return models.OrderPage{}, apperrors.NewInternalError("list order items", err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var (
			orderID string
			item    models.OrderItem
		)
		if err := itemRows.Scan(&orderID, &item.MenuID, &item.Description, &item.Price); err != nil {
			return models.OrderPage{}, apperrors.NewInternalError("list order items", err)
		}
		if i, ok := index[orderID]; ok {
			result.Orders[i].Items = append(result.Orders[i].Items, item)
		}
	}
	if err := itemRows.Err(); err != nil {
		return models.OrderPage{}, apperrors.NewInternalError("list order items", err)
	}
	return result, nil
}

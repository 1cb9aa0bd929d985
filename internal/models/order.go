package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderFulfilled OrderStatus = "fulfilled"
	OrderFailed    OrderStatus = "failed"
)

// OrderItem is a menu item snapshot taken when the order was placed.
type OrderItem struct {
	MenuID      string          `json:"menuId"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
}

type Order struct {
	ID               string      `json:"id"`
	DinerID          string      `json:"dinerId"`
	FranchiseID      string      `json:"franchiseId"`
	StoreID          string      `json:"storeId"`
	Items            []OrderItem `json:"items"`
	Status           OrderStatus `json:"status"`
	FulfillmentToken string      `json:"-"`
	ReportURL        string      `json:"reportUrl,omitempty"`
	CreatedAt        time.Time   `json:"date"`
}

// Total sums the item prices.
func (o Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range o.Items {
		total = total.Add(it.Price)
	}
	return total
}

// OrderItemSpec references a menu item. Description and price are taken from
// the menu, not from the request.
type OrderItemSpec struct {
	MenuID string `json:"menuId"`
}

type OrderSpec struct {
	FranchiseID string          `json:"franchiseId"`
	StoreID     string          `json:"storeId"`
	Items       []OrderItemSpec `json:"items"`
}

// OrderPage is one page of a diner's order history.
type OrderPage struct {
	DinerID string  `json:"dinerId"`
	Orders  []Order `json:"orders"`
	Page    int     `json:"page"`
}

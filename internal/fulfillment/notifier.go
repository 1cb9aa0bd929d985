package fulfillment

import (
	"context"
	"time"

	"pizza-service/internal/models"
)

const orderFulfilledSubject = "order.fulfilled"

// Notifier is told about every fulfilled order.
type Notifier interface {
	OrderFulfilled(ctx context.Context, diner models.UserSummary, order models.Order) error
}

// Publisher is satisfied by *aws.SNSClient.
type Publisher interface {
	PublishJSON(ctx context.Context, subject string, attrs map[string]string, payload interface{}) (string, error)
}

// OrderEvent is the message published for a fulfilled order.
type OrderEvent struct {
	OrderID     string             `json:"orderId"`
	Diner       models.UserSummary `json:"diner"`
	FranchiseID string             `json:"franchiseId"`
	StoreID     string             `json:"storeId"`
	Items       int                `json:"items"`
	Total       string             `json:"total"`
	FulfilledAt time.Time          `json:"fulfilledAt"`
}

// SNSNotifier publishes order events to an SNS topic.
type SNSNotifier struct {
	publisher Publisher
	now       func() time.Time
}

func NewSNSNotifier(publisher Publisher) *SNSNotifier {
	return &SNSNotifier{publisher: publisher, now: time.Now}
}

func (n *SNSNotifier) OrderFulfilled(ctx context.Context, diner models.UserSummary, order models.Order) error {
	event := OrderEvent{
		OrderID:     order.ID,
		Diner:       diner,
		FranchiseID: order.FranchiseID,
		StoreID:     order.StoreID,
		Items:       len(order.Items),
		Total:       order.Total().String(),
		FulfilledAt: n.now().UTC(),
	}
	attrs := map[string]string{
		"franchiseId": order.FranchiseID,
		"storeId":     order.StoreID,
	}
	_, err := n.publisher.PublishJSON(ctx, orderFulfilledSubject, attrs, event)
	return err
}

type noopNotifier struct{}

func (noopNotifier) OrderFulfilled(context.Context, models.UserSummary, models.Order) error {
	return nil
}

// NoopNotifier drops every event.
func NoopNotifier() Notifier {
	return noopNotifier{}
}

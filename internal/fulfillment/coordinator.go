// Package fulfillment places orders: it persists them, asks the pizza
// factory to make them and records the outcome.
package fulfillment

import (
	"context"
	"fmt"
	"time"

	apperrors "pizza-service/internal/common/errors"
	"pizza-service/internal/common/logger"
	"pizza-service/internal/common/observability"
	"pizza-service/internal/models"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// FactoryFailureMessage is returned to diners when the factory rejects an order.
const FactoryFailureMessage = "Failed to fulfill order at factory"

// OrderStore is the part of the repository the coordinator needs.
type OrderStore interface {
	AddOrder(ctx context.Context, dinerID string, spec models.OrderSpec) (models.Order, error)
	AttachFulfillment(ctx context.Context, orderID string, status models.OrderStatus, token, reportURL string) error
}

// Recorder receives pizza sales metrics.
type Recorder interface {
	PizzasSold(count int, revenue float64)
	PizzaFailures(count int)
}

type Coordinator struct {
	orders   OrderStore
	factory  Factory
	notifier Notifier
	recorder Recorder
	obs      *observability.Observability
	logger   logger.Logger
}

// NewCoordinator builds a coordinator. notifier, recorder and obs may be nil.
func NewCoordinator(orders OrderStore, factory Factory, notifier Notifier, recorder Recorder, obs *observability.Observability, log logger.Logger) *Coordinator {
	if notifier == nil {
		notifier = NoopNotifier()
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Coordinator{
		orders:   orders,
		factory:  factory,
		notifier: notifier,
		recorder: recorder,
		obs:      obs,
		logger:   log.WithFields(map[string]interface{}{"component": "fulfillment"}),
	}
}

// Place stores a pending order and submits it to the factory. The order is
// kept whatever the factory says: on failure the failed order is returned
// together with a dependency error carrying the report URL.
func (c *Coordinator) Place(ctx context.Context, diner models.User, spec models.OrderSpec) (models.Order, error) {
	ctx, span := c.obs.StartSpan(ctx, "fulfillment.place")
	defer span.End()

	order, err := c.orders.AddOrder(ctx, diner.ID, spec)
	if err != nil {
		span.SetStatus(codes.Error, "add order")
		return models.Order{}, err
	}
	span.SetAttributes(
		attribute.String("order.id", order.ID),
		attribute.String("franchise.id", order.FranchiseID),
		attribute.Int("order.items", len(order.Items)),
	)

	start := time.Now()
	result, submitErr := c.factory.Submit(ctx, FactoryRequest{Diner: diner.Summary(), Order: order})
	elapsed := time.Since(start)

	if submitErr == nil && result.OK() {
		c.obs.RecordFactory(ctx, string(models.OrderFulfilled), elapsed)
		return c.fulfilled(ctx, diner, order, result)
	}

	c.obs.RecordFactory(ctx, string(models.OrderFailed), elapsed)
	cause := submitErr
	if cause == nil {
		cause = fmt.Errorf("factory answered status %d", result.Status)
	}
	span.RecordError(cause)
	span.SetStatus(codes.Error, FactoryFailureMessage)
	return c.failed(ctx, order, result, cause)
}

func (c *Coordinator) fulfilled(ctx context.Context, diner models.User, order models.Order, result FactoryResult) (models.Order, error) {
	if err := c.orders.AttachFulfillment(ctx, order.ID, models.OrderFulfilled, result.JWT, ""); err != nil {
		c.logger.Error("Recording fulfillment failed", map[string]interface{}{
			"orderId": order.ID,
			"error":   err,
		})
	}
	order.Status = models.OrderFulfilled
	order.FulfillmentToken = result.JWT

	c.recorder.PizzasSold(len(order.Items), order.Total().InexactFloat64())
	c.logger.Info("Order fulfilled", map[string]interface{}{
		"orderId": order.ID,
		"dinerId": order.DinerID,
		"items":   len(order.Items),
	})

	if err := c.notifier.OrderFulfilled(ctx, diner.Summary(), order); err != nil {
		c.logger.Warn("Order notification failed", map[string]interface{}{
			"orderId": order.ID,
			"error":   err,
		})
	}
	return order, nil
}

func (c *Coordinator) failed(ctx context.Context, order models.Order, result FactoryResult, cause error) (models.Order, error) {
	order.Status = models.OrderFailed
	order.ReportURL = result.ReportURL
	c.recorder.PizzaFailures(len(order.Items))

	if err := c.orders.AttachFulfillment(ctx, order.ID, models.OrderFailed, "", result.ReportURL); err != nil {
		c.logger.Error("Recording factory failure failed", map[string]interface{}{
			"orderId": order.ID,
			"error":   err,
		})
	}

	c.logger.Warn("Factory rejected order", map[string]interface{}{
		"orderId":   order.ID,
		"status":    result.Status,
		"reportUrl": result.ReportURL,
		"error":     cause,
	})

	depErr := apperrors.NewDependencyError("factory", FactoryFailureMessage, cause)
	if result.ReportURL != "" {
		depErr.WithMetadata("reportUrl", result.ReportURL)
	}
	return order, depErr
}

type nopRecorder struct{}

func (nopRecorder) PizzasSold(int, float64) {}
func (nopRecorder) PizzaFailures(int)       {}

package fulfillment

import (
	"context"
	"fmt"
	"strings"
	"time"

	apphttp "pizza-service/internal/common/http"
	"pizza-service/internal/models"
)

const defaultFactoryTimeout = 10 * time.Second

// FactoryRequest is the body posted to the factory for one order.
type FactoryRequest struct {
	Diner models.UserSummary `json:"diner"`
	Order models.Order       `json:"order"`
}

// FactoryResult is the factory's answer. JWT proves fulfillment; ReportURL
// is set when the factory could not make the order.
type FactoryResult struct {
	Status    int    `json:"-"`
	JWT       string `json:"jwt"`
	ReportURL string `json:"reportUrl"`
}

// OK reports whether the factory accepted the order.
func (r FactoryResult) OK() bool {
	return r.Status >= 200 && r.Status < 300 && r.JWT != ""
}

// Factory submits orders to the pizza factory.
type Factory interface {
	Submit(ctx context.Context, req FactoryRequest) (FactoryResult, error)
}

// HTTPFactory talks to the factory's REST API.
type HTTPFactory struct {
	baseURL string
	apiKey  string
	client  *apphttp.Client
}

func NewHTTPFactory(baseURL, apiKey string, timeout time.Duration) *HTTPFactory {
	if timeout <= 0 {
		timeout = defaultFactoryTimeout
	}
	return &HTTPFactory{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  apphttp.NewClient(timeout),
	}
}

// Submit posts the order. A non-2xx answer is returned as a result, not an
// error; err is only set when the factory could not be reached or answered
// with an unreadable body.
func (f *HTTPFactory) Submit(ctx context.Context, req FactoryRequest) (FactoryResult, error) {
	url := fmt.Sprintf("%s/api/order", f.baseURL)
	headers := map[string]string{"Authorization": "Bearer " + f.apiKey}

	var result FactoryResult
	status, err := f.client.PostJSON(ctx, url, headers, req, &result)
	result.Status = status
	if err != nil {
		return result, fmt.Errorf("factory request failed: %w", err)
	}
	return result, nil
}

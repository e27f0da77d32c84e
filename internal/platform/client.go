// Package platform talks to the logistics platform's internal API. It
// implements the provider interfaces the engine consumes.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/dispatchiq/pkg/models"
)

// TenantHeader carries the tenant id on every platform request.
const TenantHeader = "X-Tenant-ID"

// HTTPClient implements the engine's provider interfaces over the
// platform's JSON API. Responses are wrapped in {"data": ...}.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient creates a new platform client.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) GetDeliveryHistory(ctx context.Context, tenantID uuid.UUID, filter models.HistoryFilter) ([]models.DeliveryHistoryRecord, error) {
	params := url.Values{}
	if filter.DriverID != "" {
		params.Set("driver_id", filter.DriverID)
	}
	if filter.Region != "" {
		params.Set("region", filter.Region)
	}
	if !filter.Since.IsZero() {
		params.Set("since", filter.Since.UTC().Format(time.RFC3339))
	}
	if filter.Limit > 0 {
		params.Set("limit", strconv.Itoa(filter.Limit))
	}

	var records []models.DeliveryHistoryRecord
	if _, err := c.get(ctx, tenantID, tenantPath(tenantID, "deliveries"), params, &records); err != nil {
		return nil, err
	}
	if records == nil {
		return []models.DeliveryHistoryRecord{}, nil
	}
	return records, nil
}

func (c *HTTPClient) GetCurrentConditions(ctx context.Context, tenantID uuid.UUID, orderID string) (models.CurrentConditions, error) {
	var cond models.CurrentConditions
	found, err := c.get(ctx, tenantID, tenantPath(tenantID, "orders", orderID, "conditions"), nil, &cond)
	if err != nil {
		return models.CurrentConditions{}, err
	}
	if !found {
		return models.CurrentConditions{}, fmt.Errorf("%w: order %s not found", ErrPlatformResponse, orderID)
	}
	return cond, nil
}

func (c *HTTPClient) GetPlan(ctx context.Context, tenantID uuid.UUID) (models.TenantPlanInfo, error) {
	var plan models.TenantPlanInfo
	found, err := c.get(ctx, tenantID, tenantPath(tenantID, "plan"), nil, &plan)
	if err != nil {
		return models.TenantPlanInfo{}, err
	}
	if !found {
		return models.TenantPlanInfo{}, fmt.Errorf("%w: no plan for tenant", ErrPlatformResponse)
	}
	return plan, nil
}

// GetCurrentRoute returns nil when the driver has no active route.
func (c *HTTPClient) GetCurrentRoute(ctx context.Context, tenantID uuid.UUID, driverID string) (*models.CurrentRoute, error) {
	var route models.CurrentRoute
	found, err := c.get(ctx, tenantID, tenantPath(tenantID, "drivers", driverID, "route"), nil, &route)
	if err != nil || !found {
		return nil, err
	}
	return &route, nil
}

// Publish forwards an alert to the platform's notification endpoint.
func (c *HTTPClient) Publish(ctx context.Context, alert models.AIAlert) error {
	body, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("encoding alert: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+tenantPath(alert.TenantID, "alerts"), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(TenantHeader, alert.TenantID.String())

	resp, err := c.client.Do(req)
	if err != nil {
		return classifyError(err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: status %d", ErrPlatformResponse, resp.StatusCode)
	}
	return nil
}

// Ready checks that the platform API answers.
func (c *HTTPClient) Ready(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/ready", nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPlatformUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: platform not ready (status %d)", ErrPlatformUnreachable, resp.StatusCode)
	}
	return nil
}

// get fetches path and decodes the data field into out. A 404 reports
// found=false without an error.
func (c *HTTPClient) get(ctx context.Context, tenantID uuid.UUID, path string, params url.Values, out any) (bool, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(TenantHeader, tenantID.String())

	resp, err := c.client.Do(req)
	if err != nil {
		return false, classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("%w: status %d", ErrPlatformResponse, resp.StatusCode)
	}

	env := dataEnvelope{Data: out}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return false, fmt.Errorf("%w: decoding response: %v", ErrPlatformResponse, err)
	}
	return true, nil
}

func tenantPath(tenantID uuid.UUID, segments ...string) string {
	p := "/internal/v1/tenants/" + tenantID.String()
	for _, s := range segments {
		p += "/" + url.PathEscape(s)
	}
	return p
}

// classifyError maps transport-level errors to sentinel errors.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrPlatformTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrPlatformTimeout, err)
	}

	return fmt.Errorf("%w: %v", ErrPlatformUnreachable, err)
}

type dataEnvelope struct {
	Data any `json:"data"`
}

// Compile-time checks that HTTPClient implements the provider interfaces.
var (
	_ models.HistoryProvider    = (*HTTPClient)(nil)
	_ models.ConditionsProvider = (*HTTPClient)(nil)
	_ models.PlanProvider       = (*HTTPClient)(nil)
	_ models.RouteProvider      = (*HTTPClient)(nil)
	_ models.AlertSink          = (*HTTPClient)(nil)
)

// Package store implements the remote-mode ShipmentStore: a thin client over
// the shipment backend's REST contract (GET /shipments/{id} and
// PATCH /shipments/{id} with a partial field map).
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/clearport/import-console/internal/core/domain"
)

const defaultTimeout = 10 * time.Second

type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

// NewClient builds a store client. The timeout bounds every request; zero
// falls back to the 10s default.
func NewClient(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}
}

// Get fetches the full shipment snapshot, containers included.
func (c *Client) Get(ctx context.Context, shipmentID string) (*domain.Shipment, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.shipmentURL(shipmentID), nil)
	if err != nil {
		return nil, err
	}
	return c.doShipment(req)
}

// ApplyPatch sends the partial field map and returns the acknowledged state.
func (c *Client) ApplyPatch(ctx context.Context, shipmentID string, patch *domain.Patch) (*domain.Shipment, error) {
	body, err := json.Marshal(patch.Body())
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, c.shipmentURL(shipmentID), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.doShipment(req)
}

func (c *Client) shipmentURL(shipmentID string) string {
	return c.baseURL + "/shipments/" + shipmentID
}

// doShipment runs the request and classifies failures: transport errors and
// 5xx responses are transient (eligible for the coordinator's single retry),
// 4xx responses are permanent.
func (c *Client) doShipment(req *http.Request) (*domain.Shipment, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &domain.TransientError{Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		var s domain.Shipment
		if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
			return nil, fmt.Errorf("decode shipment response: %w", err)
		}
		return &s, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, &domain.PermanentError{Status: resp.StatusCode, Err: domain.ErrShipmentNotFound}
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, &domain.PermanentError{Status: resp.StatusCode, Err: fmt.Errorf("store rejected request: %s", errorMessage(resp.Body))}
	default:
		return nil, &domain.TransientError{Err: fmt.Errorf("store returned status %d", resp.StatusCode)}
	}
}

// errorMessage extracts the store's {"error": "..."} envelope, falling back
// to the raw body.
func errorMessage(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil || len(raw) == 0 {
		return "no error detail"
	}
	var envelope struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &envelope) == nil && envelope.Error != "" {
		return envelope.Error
	}
	return string(raw)
}

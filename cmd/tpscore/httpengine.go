package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/datasciencecampus/transport-network-performance/geoio"
	"github.com/datasciencecampus/transport-network-performance/odbatch"
	"github.com/datasciencecampus/transport-network-performance/tperror"
)

// httpRoutingEngine submits an origin/destination batch to a routing
// engine exposed as a single JSON HTTP endpoint. None of the example
// repos' dependency sets include a client for a bespoke routing-engine
// protocol, so this collaborator is built directly on net/http.
type httpRoutingEngine struct {
	endpoint string
	client   *http.Client
}

func newHTTPRoutingEngine(endpoint string) *httpRoutingEngine {
	return &httpRoutingEngine{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 2 * time.Minute},
	}
}

type routeRequestBody struct {
	Origins      []odbatch.Point `json:"origins"`
	Destinations []odbatch.Point `json:"destinations"`
	Departure    time.Time       `json:"departure"`
	WindowSecs   float64         `json:"window_seconds"`
	MaxTripSecs  float64         `json:"max_trip_seconds"`
	Modes        []string        `json:"modes"`
}

type routeResponseBody struct {
	Rows []struct {
		FromID     int64  `json:"from_id"`
		ToID       int64  `json:"to_id"`
		TravelTime *int32 `json:"travel_time"`
	} `json:"rows"`
	OutOfRange bool `json:"out_of_range"`
}

func (e *httpRoutingEngine) Route(ctx context.Context, origins, destinations []odbatch.Point, cfg odbatch.Config) ([]geoio.TravelTimeRow, error) {
	body := routeRequestBody{
		Origins:      origins,
		Destinations: destinations,
		Departure:    cfg.Departure,
		WindowSecs:   cfg.Window.Seconds(),
		MaxTripSecs:  cfg.MaxTripDuration.Seconds(),
		Modes:        cfg.Modes,
	}
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(body); err != nil {
		return nil, fmt.Errorf("httpengine: encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, buf)
	if err != nil {
		return nil, fmt.Errorf("httpengine: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpengine: request to %s: %w", e.endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("httpengine: %s returned status %d", e.endpoint, resp.StatusCode)
	}

	var out routeResponseBody
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("httpengine: decoding response: %w", err)
	}
	if out.OutOfRange {
		return nil, tperror.New("httpengine.Route", tperror.RoutingOutOfRange).
			WithParam("departure", cfg.Departure)
	}

	rows := make([]geoio.TravelTimeRow, 0, len(out.Rows))
	for _, r := range out.Rows {
		row := geoio.TravelTimeRow{FromID: r.FromID, ToID: r.ToID}
		if r.TravelTime != nil {
			row.TravelTime = *r.TravelTime
			row.Valid = true
		}
		rows = append(rows, row)
	}
	return rows, nil
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datasciencecampus/transport-network-performance/odbatch"
	"github.com/datasciencecampus/transport-network-performance/tperror"
)

func TestHTTPRoutingEngineRoute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body routeRequestBody
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Len(t, body.Origins, 1)

		tt := int32(12)
		json.NewEncoder(w).Encode(routeResponseBody{
			Rows: []struct {
				FromID     int64  `json:"from_id"`
				ToID       int64  `json:"to_id"`
				TravelTime *int32 `json:"travel_time"`
			}{
				{FromID: body.Origins[0].ID, ToID: body.Destinations[0].ID, TravelTime: &tt},
			},
		})
	}))
	defer srv.Close()

	engine := newHTTPRoutingEngine(srv.URL)
	rows, err := engine.Route(context.Background(),
		[]odbatch.Point{{ID: 1, Lon: 0, Lat: 0}},
		[]odbatch.Point{{ID: 2, Lon: 1, Lat: 1}},
		odbatch.Config{Departure: time.Now()})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1), rows[0].FromID)
	assert.Equal(t, int32(12), rows[0].TravelTime)
	assert.True(t, rows[0].Valid)
}

func TestHTTPRoutingEngineOutOfRange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(routeResponseBody{OutOfRange: true})
	}))
	defer srv.Close()

	engine := newHTTPRoutingEngine(srv.URL)
	_, err := engine.Route(context.Background(), nil, nil, odbatch.Config{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, tperror.New("", tperror.RoutingOutOfRange)))
}

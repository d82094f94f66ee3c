// Package testutil provides testing utilities for the statistics API client.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
)

// MockAPIResponse defines the behavior for a mock endpoint response.
type MockAPIResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
}

// MockAPI is a configurable mock of the Ergast-compatible API for testing.
type MockAPI struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	// Tracking
	RequestCount int
	Requests     []string
}

// NewMockAPI creates a new mock API server. Unknown paths answer with an
// empty race table.
func NewMockAPI() *MockAPI {
	mock := &MockAPI{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.Requests = append(mock.Requests, r.URL.RequestURI())
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}
		writeJSON(w, EmptyRaceTable())
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockAPI) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockAPI) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.Requests = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockAPI) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a fixed response for a path.
func (m *MockAPI) SetResponse(path string, resp MockAPIResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			_, _ = w.Write([]byte(resp.Body))
		}
	})
}

// SetJSON serves v as a 200 JSON response for a path.
func (m *MockAPI) SetJSON(path string, v any) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, v)
	})
}

// SetSeason serves the season calendar with the given rounds.
func (m *MockAPI) SetSeason(season int, rounds ...int) {
	races := make([]map[string]any, 0, len(rounds))
	for _, rnd := range rounds {
		races = append(races, map[string]any{
			"season":   strconv.Itoa(season),
			"round":    strconv.Itoa(rnd),
			"raceName": fmt.Sprintf("Round %d Grand Prix", rnd),
		})
	}
	m.SetJSON(fmt.Sprintf("/%d.json", season), raceTable(len(races), races))
}

// SetResults serves the classified results of one event. numbers maps
// driverId to car number; an empty number omits the field.
func (m *MockAPI) SetResults(season, round int, numbers map[string]string) {
	results := make([]map[string]any, 0, len(numbers))
	for driverID, number := range numbers {
		result := map[string]any{
			"Driver": map[string]any{"driverId": driverID},
		}
		if number != "" {
			result["number"] = number
		}
		results = append(results, result)
	}
	race := map[string]any{
		"season":  strconv.Itoa(season),
		"round":   strconv.Itoa(round),
		"Results": results,
	}
	m.SetJSON(fmt.Sprintf("/%d/%d/results.json", season, round), raceTable(len(results), []map[string]any{race}))
}

// SetPitStops serves stops for one event, honouring limit and offset.
func (m *MockAPI) SetPitStops(season, round int, stops []map[string]any) {
	m.SetHandler(fmt.Sprintf("/%d/%d/pitstops.json", season, round), func(w http.ResponseWriter, r *http.Request) {
		limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
		if err != nil || limit <= 0 {
			limit = 30
		}
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

		page := []map[string]any{}
		for i := offset; i < offset+limit && i < len(stops); i++ {
			page = append(page, stops[i])
		}
		race := map[string]any{
			"season":   strconv.Itoa(season),
			"round":    strconv.Itoa(round),
			"PitStops": page,
		}
		writeJSON(w, raceTable(len(stops), []map[string]any{race}))
	})
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockAPI) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// CountPath returns the number of requests made to path.
func (m *MockAPI) CountPath(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, uri := range m.Requests {
		if uri == path || (len(uri) > len(path) && uri[:len(path)] == path && uri[len(path)] == '?') {
			n++
		}
	}
	return n
}

// EmptyRaceTable is the body served for events that do not exist.
func EmptyRaceTable() map[string]any {
	return raceTable(0, []map[string]any{})
}

// PitStop builds one raw pit-stop record.
func PitStop(driverID string, stop int, duration any) map[string]any {
	return map[string]any{
		"driverId": driverID,
		"lap":      strconv.Itoa(stop * 10),
		"stop":     strconv.Itoa(stop),
		"time":     "14:05:00",
		"duration": duration,
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockAPIResponse {
	return MockAPIResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"error": "Rate limit exceeded"}`,
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockAPIResponse {
	return MockAPIResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal server error"}`,
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
	}
}

func raceTable(total int, races []map[string]any) map[string]any {
	return map[string]any{
		"MRData": map[string]any{
			"xmlns":  "",
			"series": "f1",
			"limit":  "30",
			"offset": "0",
			"total":  strconv.Itoa(total),
			"RaceTable": map[string]any{
				"Races": races,
			},
		},
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(v)
}

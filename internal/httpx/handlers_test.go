package httpx

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/you/go-flight-offers/internal/currency"
	"github.com/you/go-flight-offers/internal/providers"
	"github.com/you/go-flight-offers/internal/routes"
	"github.com/you/go-flight-offers/internal/service"
)

type stubSearcher struct {
	mu   sync.Mutex
	reqs []service.SearchRequest
	res  service.SearchResult
	err  error
}

func (s *stubSearcher) Run(_ context.Context, req service.SearchRequest) (service.SearchResult, error) {
	s.mu.Lock()
	s.reqs = append(s.reqs, req)
	s.mu.Unlock()
	return s.res, s.err
}

func (s *stubSearcher) last() service.SearchRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reqs[len(s.reqs)-1]
}

var sampleResult = service.SearchResult{
	Origin: "LHR", Destination: "JFK", TravelDate: "2025-06-01", CabinClass: "PREMIUM_ECONOMY",
	Offers: []service.NormalizedOffer{{ID: "off_1", PriceINR: "9000.00", AirlineName: "British Airways"}},
}

func newServer(t *testing.T, s Searcher, seed []routes.Route) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	NewHandlers(s, seed, 20*time.Millisecond, nil).Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestSearchHandler(t *testing.T) {
	s := &stubSearcher{res: sampleResult}
	srv := newServer(t, s, nil)

	resp, err := http.Get(srv.URL + "/flight/LHR/JFK/01-06-2025/Premium%20Economy?airline=BA&limit=5")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got service.SearchResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, sampleResult, got)
	assert.Equal(t, service.SearchRequest{
		Origin: "LHR", Destination: "JFK", TravelDate: "01-06-2025", CabinClass: "Premium Economy", Airline: "BA", Limit: 5,
	}, s.last())
}

func TestSearchHandlerBadLimit(t *testing.T) {
	s := &stubSearcher{res: sampleResult}
	srv := newServer(t, s, nil)

	resp, err := http.Get(srv.URL + "/flight/LHR/JFK/01-06-2025/economy?limit=abc")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, s.reqs)
}

func TestSearchHandlerErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", service.ErrMissingOrigin, http.StatusBadRequest},
		{"provider", &providers.ProviderError{Provider: "duffel", StatusCode: 422, Err: errors.New("bad")}, http.StatusBadGateway},
		{"auth", &providers.AuthError{Provider: "amadeus", Err: errors.New("denied")}, http.StatusBadGateway},
		{"conversion", &currency.ConversionError{From: "EUR", To: "INR", Err: errors.New("down")}, http.StatusBadGateway},
		{"timeout", fmt.Errorf("search: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newServer(t, &stubSearcher{err: tt.err}, nil)
			resp, err := http.Get(srv.URL + "/flight/LHR/JFK/01-06-2025/economy")
			require.NoError(t, err)
			defer resp.Body.Close()

			require.Equal(t, tt.want, resp.StatusCode)
			var body errorResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.want, body.Status)
			assert.Equal(t, tt.err.Error(), body.Message)
		})
	}
}

func TestRoutesHandler(t *testing.T) {
	seed := []routes.Route{{Origin: "LHR", Destination: "JFK", TravelDate: "01-06-2025", FlightClass: "Economy"}}
	srv := newServer(t, &stubSearcher{}, seed)

	resp, err := http.Get(srv.URL + "/routes")
	require.NoError(t, err)
	defer resp.Body.Close()

	var got []routes.Route
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, seed, got)
}

func TestSubscribeSSE(t *testing.T) {
	s := &stubSearcher{res: sampleResult}
	srv := newServer(t, s, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/sse/flight/LHR/JFK/01-06-2025/economy", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	sc := bufio.NewScanner(resp.Body)
	updates := 0
	for sc.Scan() && updates < 2 {
		line := sc.Text()
		if line == "event: update" {
			updates++
			require.True(t, sc.Scan())
			data, ok := strings.CutPrefix(sc.Text(), "data: ")
			require.True(t, ok)
			var got service.SearchResult
			require.NoError(t, json.Unmarshal([]byte(data), &got))
			assert.Equal(t, sampleResult, got)
		}
	}
	assert.Equal(t, 2, updates)
}

func TestSubscribeSSEError(t *testing.T) {
	srv := newServer(t, &stubSearcher{err: &providers.ProviderError{Provider: "duffel", Err: errors.New("down")}}, nil)

	resp, err := http.Get(srv.URL + "/sse/flight/LHR/JFK/01-06-2025/economy")
	require.NoError(t, err)
	defer resp.Body.Close()

	sc := bufio.NewScanner(resp.Body)
	require.True(t, sc.Scan())
	assert.Equal(t, "event: error", sc.Text())
	require.True(t, sc.Scan())
	assert.Contains(t, sc.Text(), `"status":502`)
}

func TestSubscribeWS(t *testing.T) {
	s := &stubSearcher{res: sampleResult}
	srv := newServer(t, s, nil)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/flight/LHR/JFK/01-06-2025/business"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	for range 2 {
		var got service.SearchResult
		require.NoError(t, conn.ReadJSON(&got))
		assert.Equal(t, sampleResult, got)
	}
	assert.Equal(t, "business", s.last().CabinClass)
}

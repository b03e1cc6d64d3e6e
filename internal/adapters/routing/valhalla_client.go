package routing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"state-time-service/internal/domain"
	"state-time-service/internal/platform/httpx"
	"state-time-service/internal/platform/obs"
	"strings"
	"time"
)

// Named stop for route fetching.
type City struct {
	Name string
	domain.Coordinates
}

// Cities is the fixed corpus of US metro areas routed pairwise.
var Cities = []City{
	{"New_York", domain.Coordinates{Lat: 40.7128, Lon: -74.0060}},
	{"Los_Angeles", domain.Coordinates{Lat: 34.0522, Lon: -118.2437}},
	{"Chicago", domain.Coordinates{Lat: 41.8781, Lon: -87.6298}},
	{"Dallas", domain.Coordinates{Lat: 32.7767, Lon: -96.7970}},
	{"Houston", domain.Coordinates{Lat: 29.7604, Lon: -95.3698}},
	{"Washington", domain.Coordinates{Lat: 38.9072, Lon: -77.0369}},
	{"Miami", domain.Coordinates{Lat: 25.7617, Lon: -80.1918}},
	{"Philadelphia", domain.Coordinates{Lat: 39.9526, Lon: -75.1652}},
	{"Atlanta", domain.Coordinates{Lat: 33.7490, Lon: -84.3880}},
	{"Phoenix", domain.Coordinates{Lat: 33.4484, Lon: -112.0740}},
	{"Boston", domain.Coordinates{Lat: 42.3601, Lon: -71.0589}},
	{"San_Francisco", domain.Coordinates{Lat: 37.7749, Lon: -122.4194}},
	{"Detroit", domain.Coordinates{Lat: 42.3314, Lon: -83.0458}},
	{"Seattle", domain.Coordinates{Lat: 47.6062, Lon: -122.3321}},
	{"Minneapolis", domain.Coordinates{Lat: 44.9778, Lon: -93.2650}},
	{"San_Diego", domain.Coordinates{Lat: 32.7157, Lon: -117.1611}},
	{"Denver", domain.Coordinates{Lat: 39.7392, Lon: -104.9903}},
	{"Orlando", domain.Coordinates{Lat: 28.5383, Lon: -81.3792}},
	{"Charlotte", domain.Coordinates{Lat: 35.2271, Lon: -80.8431}},
	{"Baltimore", domain.Coordinates{Lat: 39.2904, Lon: -76.6122}},
	{"San_Antonio", domain.Coordinates{Lat: 29.4241, Lon: -98.4936}},
	{"Austin", domain.Coordinates{Lat: 30.2672, Lon: -97.7431}},
}

// Pair is an ordered origin/destination pair.
type Pair struct {
	From, To City
}

// Name returns "<From>_to_<To>".
func (p Pair) Name() string { return p.From.Name + "_to_" + p.To.Name }

// Pairs returns every unordered pair of cities once, in list order.
func Pairs(cities []City) []Pair {
	out := make([]Pair, 0, len(cities)*(len(cities)-1)/2)
	for i := range cities {
		for j := i + 1; j < len(cities); j++ {
			out = append(out, Pair{From: cities[i], To: cities[j]})
		}
	}
	return out
}

type routeLocation struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type routeRequest struct {
	Locations         []routeLocation `json:"locations"`
	Costing           string          `json:"costing"`
	DirectionsOptions struct {
		Units string `json:"units"`
	} `json:"directions_options"`
}

// ValhallaClient requests truck routes from a Valhalla server.
//
// The client is safe for concurrent use.
type ValhallaClient struct {
	client  *httpx.Client
	baseURL string
	costing string
}

func NewValhallaClient(baseURL string, timeout time.Duration) (*ValhallaClient, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("valhalla base url is empty")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &ValhallaClient{
		client:  httpx.NewClient(timeout, "state-time-service/1.0"),
		baseURL: baseURL,
		costing: "truck",
	}, nil
}

// FetchRaw returns the raw /route response body for a pair.
func (v *ValhallaClient) FetchRaw(ctx context.Context, from, to domain.Coordinates) (_ []byte, err error) {
	defer obs.Time(ctx, "valhalla.FetchRaw")(&err)

	reqBody := routeRequest{
		Locations: []routeLocation{
			{Lat: from.Lat, Lon: from.Lon},
			{Lat: to.Lat, Lon: to.Lon},
		},
		Costing: v.costing,
	}
	reqBody.DirectionsOptions.Units = "kilometers"

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal route request: %w", err)
	}

	resp, err := v.client.DoWithRetry(ctx, func() (*http.Request, error) {
		return v.client.NewRequest(ctx, http.MethodPost, v.baseURL+"/route", bytes.NewReader(payload))
	})
	if err != nil {
		return nil, fmt.Errorf("execute route request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read route response: %w", err)
	}
	return body, nil
}

// FetchRoute requests and parses a route for key.
func (v *ValhallaClient) FetchRoute(ctx context.Context, key domain.TripKey, from, to domain.Coordinates) (*domain.Route, error) {
	body, err := v.FetchRaw(ctx, from, to)
	if err != nil {
		return nil, err
	}
	return ParseRoute(key, body)
}

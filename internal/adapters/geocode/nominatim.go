package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"state-time-service/internal/domain"
	"state-time-service/internal/platform/httpx"
	"state-time-service/internal/platform/obs"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

type reverseResponse struct {
	Error   string `json:"error"`
	Address struct {
		State       string `json:"state"`
		Region      string `json:"region"`
		Province    string `json:"province"`
		CountryCode string `json:"country_code"`
	} `json:"address"`
}

// NominatimGeocoder resolves coordinates to "CC:StateName" codes using a
// Nominatim instance (/reverse). Requests are rate limited and transient
// failures are retried.
//
// The geocoder is safe for concurrent use.
type NominatimGeocoder struct {
	client  *httpx.Client
	baseURL string
	limiter *rate.Limiter
}

// NewNominatimGeocoder builds a geocoder against baseURL. rps <= 0 disables
// rate limiting.
func NewNominatimGeocoder(baseURL string, timeout time.Duration, rps float64) (*NominatimGeocoder, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("nominatim base url is empty")
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if rps > 0 {
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}

	return &NominatimGeocoder{
		client:  httpx.NewClient(timeout, "state-time-service/1.0"),
		baseURL: baseURL,
		limiter: limiter,
	}, nil
}

func (g *NominatimGeocoder) newReverseRequest(ctx context.Context, c domain.Coordinates) (*http.Request, error) {
	req, err := g.client.NewRequest(ctx, http.MethodGet, g.baseURL+"/reverse", nil)
	if err != nil {
		return nil, err
	}

	q := req.URL.Query()
	q.Set("format", "jsonv2")
	q.Set("lat", strconv.FormatFloat(c.Lat, 'f', 6, 64))
	q.Set("lon", strconv.FormatFloat(c.Lon, 'f', 6, 64))
	q.Set("zoom", "10")
	q.Set("addressdetails", "1")
	req.URL.RawQuery = q.Encode()

	return req, nil
}

// ReverseState returns found=false when the point is not inside any
// administrative area (open sea, or a response without state and country).
func (g *NominatimGeocoder) ReverseState(ctx context.Context, c domain.Coordinates) (_ string, _ bool, err error) {
	defer obs.Time(ctx, "nominatim.ReverseState")(&err)

	if err := g.limiter.Wait(ctx); err != nil {
		return "", false, fmt.Errorf("nominatim rate limit: %w", err)
	}

	resp, err := g.client.DoWithRetry(ctx, func() (*http.Request, error) {
		return g.newReverseRequest(ctx, c)
	})
	if err != nil {
		return "", false, fmt.Errorf("nominatim reverse lat=%.6f lon=%.6f: %w", c.Lat, c.Lon, err)
	}
	defer resp.Body.Close()

	var decoded reverseResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", false, fmt.Errorf("decode reverse response: %w", err)
	}

	if decoded.Error != "" {
		return "", false, nil
	}

	state, ok := StateCode(
		decoded.Address.CountryCode,
		decoded.Address.State,
		decoded.Address.Region,
		decoded.Address.Province,
	)
	return state, ok, nil
}

// StateCode formats "CC:Name" from a country code and the first non-empty
// subdivision name.
func StateCode(countryCode string, names ...string) (string, bool) {
	cc := strings.ToUpper(strings.TrimSpace(countryCode))
	if cc == "" {
		return "", false
	}
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			return cc + ":" + n, true
		}
	}
	return "", false
}

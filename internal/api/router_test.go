package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"state-time-service/internal/adapters/geocode"
	"state-time-service/internal/api/dto"
	"state-time-service/internal/services"
	"strings"
	"testing"

	"github.com/twpayne/go-polyline"
)

func newTestRouter(t *testing.T) (http.Handler, *geocode.MockGeocoder) {
	t.Helper()
	g := geocode.NewMockGeocoder([]geocode.Band{
		{MaxLon: -115.5, State: "US:California"},
		{MaxLon: -110, State: "US:Nevada"},
	})
	cache := services.NewCellCache(nil)

	pipelines := make(map[services.Mode]*services.Pipeline)
	for _, m := range []services.Mode{services.ModeFast, services.ModePrecise} {
		p, err := services.NewPipeline(services.DefaultOptions(m), cache, g)
		if err != nil {
			t.Fatalf("new pipeline: %v", err)
		}
		pipelines[m] = p
	}
	return NewRouter(pipelines, services.ModeFast), g
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := do(t, h, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected a request id header")
	}

	var res dto.HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatal(err)
	}
	if res.Status != "ok" || res.CellResolution != 9 || res.CellLevel != 15 {
		t.Fatalf("unexpected health: %+v", res)
	}

	if rec := do(t, h, http.MethodPost, "/health", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestClassifyPoints(t *testing.T) {
	h, g := newTestRouter(t)

	body := `{"lat":[36.0,36.0,36.0],"lon":[-118.0,-113.0,-118.0]}`
	rec := do(t, h, http.MethodPost, "/classify_points", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var res dto.ClassifyPointsResponse
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatal(err)
	}
	want := []string{"US:California", "US:Nevada", "US:California"}
	for i := range want {
		if res.States[i] != want[i] {
			t.Fatalf("states = %v, want %v", res.States, want)
		}
	}
	if res.Metadata.CacheHits != 1 || res.Metadata.CacheMisses != 2 {
		t.Fatalf("unexpected metadata: %+v", res.Metadata)
	}
	if g.Calls() != 2 {
		t.Fatalf("expected 2 geocoder calls, got %d", g.Calls())
	}
}

func TestClassifyPointsRejectsBadInput(t *testing.T) {
	h, _ := newTestRouter(t)

	cases := []string{
		`{"lat":[1,2],"lon":[1]}`,
		`{"lat":[91],"lon":[0]}`,
		`{"lat":[1],"lon":[1],"extra":true}`,
		`{"lat":[1],"lon":[1]}{}`,
		`not json`,
	}
	for _, body := range cases {
		if rec := do(t, h, http.MethodPost, "/classify_points", body); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", body, rec.Code)
		}
	}
}

func routeBody(t *testing.T) string {
	t.Helper()
	shape := polyline.Codec{Dim: 2, Scale: 1e6}.EncodeCoords(nil, [][]float64{
		{36, -120}, {36, -119}, {36, -117}, {36, -113},
	})
	raw, err := json.Marshal(string(shape))
	if err != nil {
		t.Fatal(err)
	}
	return fmt.Sprintf(`{"trip":{"legs":[{"shape":%s,"summary":{"time":300},"maneuvers":[
		{"begin_shape_index":0,"end_shape_index":1,"time":120},
		{"begin_shape_index":2,"end_shape_index":3,"time":180}]}]}}`, raw)
}

func TestAttribute(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/attribute?mode=fast&vehicle_id=truck&trip_id=t1", routeBody(t))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var res dto.AttributeResponse
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatal(err)
	}
	if res.VehicleID != "truck" || res.TripID != "t1" || res.Mode != "fast" {
		t.Fatalf("unexpected header: %+v", res)
	}
	if res.TotalDriveSeconds != 300 || len(res.Allocations) != 2 {
		t.Fatalf("unexpected allocations: %+v", res)
	}
	if res.Allocations[0].State != "US:California" || res.Allocations[0].DriveSeconds != 120 {
		t.Fatalf("unexpected first allocation: %+v", res.Allocations[0])
	}
}

func TestAttributeErrors(t *testing.T) {
	h, _ := newTestRouter(t)

	if rec := do(t, h, http.MethodPost, "/attribute?mode=slow", routeBody(t)); rec.Code != http.StatusBadRequest {
		t.Errorf("unknown mode: expected 400, got %d", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, "/attribute", `{"trip":{"legs":[]}}`); rec.Code != http.StatusBadRequest {
		t.Errorf("no legs: expected 400, got %d", rec.Code)
	}

	bad := `{"trip":{"legs":[{"shape":"_","maneuvers":[{"begin_shape_index":0,"end_shape_index":1,"time":5}]}]}}`
	if rec := do(t, h, http.MethodPost, "/attribute", bad); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("bad shape: expected 422, got %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/attribute", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET: expected 405, got %d", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h, _ := newTestRouter(t)
	do(t, h, http.MethodPost, "/classify_points", `{"lat":[36],"lon":[-118]}`)

	rec := do(t, h, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "statetime_cell_cache_lookups_total") {
		t.Fatal("expected cell cache metrics in exposition")
	}
}

func TestRequestIDIsPropagated(t *testing.T) {
	h, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Fatalf("expected propagated id, got %q", got)
	}
}

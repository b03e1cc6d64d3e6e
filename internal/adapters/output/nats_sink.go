package output

import (
	"context"
	"encoding/json"
	"fmt"
	"state-time-service/internal/domain"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
)

// headerCarrier adapts nats.Msg headers for the OTel propagator.
type headerCarrier nats.Msg

func (c *headerCarrier) Get(key string) string {
	if c.Header == nil {
		return ""
	}
	return c.Header.Get(key)
}

func (c *headerCarrier) Set(key, val string) {
	if c.Header == nil {
		c.Header = make(nats.Header)
	}
	c.Header.Set(key, val)
}

func (c *headerCarrier) Keys() []string {
	if c.Header == nil {
		return nil
	}
	keys := make([]string, 0, len(c.Header))
	for k := range c.Header {
		keys = append(keys, k)
	}
	return keys
}

// TripMessage is the JSON payload published per attributed trip.
type TripMessage struct {
	RunID           string          `json:"run_id"`
	Mode            string          `json:"mode"`
	VehicleID       string          `json:"vehicle_id"`
	TripID          string          `json:"trip_id"`
	LegSecondsTotal float64         `json:"leg_seconds_total"`
	DriveSeconds    float64         `json:"drive_seconds"`
	Allocations     []allocationRow `json:"allocations"`
}

// NATSSink publishes each trip's allocations to Subject.
// Trace context from ctx is injected into the message headers.
type NATSSink struct {
	nc      *nats.Conn
	subject string
	runID   string
	mode    string
}

func NewNATSSink(nc *nats.Conn, subject, runID, mode string) *NATSSink {
	return &NATSSink{nc: nc, subject: subject, runID: runID, mode: mode}
}

func (s *NATSSink) WriteTrip(ctx context.Context, result domain.TripResult) error {
	data, err := json.Marshal(TripMessage{
		RunID:           s.runID,
		Mode:            s.mode,
		VehicleID:       result.VehicleID,
		TripID:          result.TripID,
		LegSecondsTotal: result.LegSecondsTotal,
		DriveSeconds:    result.DriveSeconds(),
		Allocations:     allocationRows(result.Allocations),
	})
	if err != nil {
		return fmt.Errorf("publish trip %s: %w", result.TripKey, err)
	}

	msg := &nats.Msg{Subject: s.subject, Data: data}
	otel.GetTextMapPropagator().Inject(ctx, (*headerCarrier)(msg))
	if err := s.nc.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish trip %s: %w", result.TripKey, err)
	}
	return nil
}

// Flush waits for published messages to reach the server.
func (s *NATSSink) Flush() error { return s.nc.Flush() }

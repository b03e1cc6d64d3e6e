package api

import (
	"net/http"
	"state-time-service/internal/api/handlers"
	"state-time-service/internal/services"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// This is the API composition root (handlers stay unaware of concrete adapters).
func NewRouter(pipelines map[services.Mode]*services.Pipeline, defaultMode services.Mode) http.Handler {
	mux := http.NewServeMux()

	var classifier *services.Classifier
	if p, ok := pipelines[defaultMode]; ok {
		classifier = p.Classifier()
	}

	healthHandler := &handlers.HealthHandler{Classifier: classifier}
	classifyHandler := &handlers.ClassifyHandler{Classifier: classifier}
	attributeHandler := &handlers.AttributeHandler{
		Pipelines:   pipelines,
		DefaultMode: defaultMode,
	}

	mux.HandleFunc("/health", healthHandler.Health)
	mux.HandleFunc("/classify_points", classifyHandler.ClassifyPoints)
	mux.HandleFunc("/attribute", attributeHandler.Attribute)
	mux.Handle("/metrics", promhttp.Handler())

	return otelhttp.NewHandler(requestIDMiddleware(loggingMiddleware(mux)), "state-time-service")
}

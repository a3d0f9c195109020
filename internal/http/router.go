package httpserver

import (
	"net/http"

	"sensorvision/internal/http/handlers"
)

// Routes defines HTTP endpoints.
type Routes struct {
	Ingest    *handlers.IngestHandler
	Devices   *handlers.DevicesHandler
	Variables *handlers.VariablesHandler
	Values    *handlers.ValuesHandler
	WS        *handlers.WSHandler
	Health    *handlers.HealthHandler
	Metrics   http.Handler
}

// NewRouter sets up HTTP routing. userAuth protects the user-facing API;
// ingest authenticates with device tokens and health/metrics stay open.
func NewRouter(routes Routes, userAuth func(http.Handler) http.Handler) http.Handler {
	mux := http.NewServeMux()

	if routes.Health != nil {
		mux.Handle("GET /health", routes.Health)
	}
	if routes.Metrics != nil {
		mux.Handle("GET /metrics", routes.Metrics)
	}
	if routes.Ingest != nil {
		mux.Handle("POST /v1/telemetry", routes.Ingest)
	}
	if routes.Devices != nil {
		mux.Handle("POST /v1/devices", userAuth(http.HandlerFunc(routes.Devices.Register)))
	}
	if routes.Variables != nil {
		mux.Handle("POST /v1/devices/{deviceID}/synthetic-variables", userAuth(http.HandlerFunc(routes.Variables.Create)))
		mux.Handle("GET /v1/devices/{deviceID}/synthetic-variables", userAuth(http.HandlerFunc(routes.Variables.List)))
		mux.Handle("PATCH /v1/synthetic-variables/{id}", userAuth(http.HandlerFunc(routes.Variables.Update)))
		mux.Handle("DELETE /v1/synthetic-variables/{id}", userAuth(http.HandlerFunc(routes.Variables.Delete)))
	}
	if routes.Values != nil {
		mux.Handle("GET /v1/synthetic-variables/{id}/values", userAuth(http.HandlerFunc(routes.Values.List)))
		mux.Handle("GET /v1/devices/{deviceID}/synthetic-variables/{name}/latest", userAuth(http.HandlerFunc(routes.Values.Latest)))
	}
	if routes.WS != nil {
		mux.Handle("GET /ws/devices/{deviceID}/values", userAuth(routes.WS))
	}

	return mux
}

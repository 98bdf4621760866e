package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/temp14-service/internal/lifecycle"
	"github.com/kjstillabower/temp14-service/internal/models"
	"github.com/kjstillabower/temp14-service/internal/observability"
	"github.com/kjstillabower/temp14-service/internal/traffic"
	"github.com/kjstillabower/temp14-service/internal/validation"
)

const (
	msgPlaceNotFound     = "Place not found"
	msgCoordinateMissing = "Place isn't specified and one of coordinates is missing"
)

// TemperatureService returns daily 14:00 local temperatures for a coordinate.
type TemperatureService interface {
	GetDailyTemperatures(ctx context.Context, lat, lon float64) models.ForecastResult
}

// PlaceSearcher resolves a place name to coordinates.
type PlaceSearcher interface {
	Search(ctx context.Context, place string) (models.Coordinate, bool, error)
}

// HealthConfig holds thresholds and probes for the health handler.
type HealthConfig struct {
	DegradedWindow   time.Duration
	DegradedErrorPct int
	// CachePing, when set, is called to check cache reachability. Set for networked backends.
	CachePing func() error
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	temperatures     TemperatureService
	places           PlaceSearcher
	defaultLocation  models.Coordinate
	state            *lifecycle.State
	outcomes         *traffic.Window
	healthConfig     *HealthConfig
	logger           *zap.Logger
	healthStatusMu   sync.Mutex
	healthStatusPrev string
}

// NewHandler returns a new Handler. defaultLocation is used by /weather when no
// place or coordinates are given.
func NewHandler(
	temperatures TemperatureService,
	places PlaceSearcher,
	defaultLocation models.Coordinate,
	state *lifecycle.State,
	outcomes *traffic.Window,
	healthConfig *HealthConfig,
	logger *zap.Logger,
) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		temperatures:    temperatures,
		places:          places,
		defaultLocation: defaultLocation,
		state:           state,
		outcomes:        outcomes,
		healthConfig:    healthConfig,
		logger:          logger,
	}
}

// locationJSON renders as {} when the location is unknown.
type locationJSON struct {
	Lat *float64 `json:"lat,omitempty"`
	Lon *float64 `json:"lon,omitempty"`
}

type weatherResponse struct {
	Location     locationJSON              `json:"location"`
	Temperatures []models.DailyTemperature `json:"temperatures"`
	ErrorMessage *string                   `json:"error_message"`
}

type searchResponse struct {
	ErrorMessage *string `json:"error_message"`
	Place        string  `json:"place"`
	Lat          float64 `json:"lat"`
	Lon          float64 `json:"lon"`
}

// GetWeather handles GET /weather?lat=&lon=&place=.
// place takes precedence over coordinates; with neither, the default location is used.
func (h *Handler) GetWeather(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	ctx := r.Context()

	var coord models.Coordinate
	if rawPlace := query.Get("place"); strings.TrimSpace(rawPlace) != "" {
		place, err := validation.ValidatePlace(rawPlace)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "INVALID_PLACE", err.Error())
			return
		}
		var found bool
		coord, found, err = h.places.Search(ctx, place)
		if err != nil {
			writeServiceError(w, r, "GEOCODING_UNAVAILABLE", "Unable to look up place", err)
			return
		}
		if !found {
			msg := msgPlaceNotFound
			writeJSON(w, http.StatusOK, weatherResponse{ErrorMessage: &msg})
			return
		}
	} else {
		parsed, provided, err := validation.ParseCoordinate(query.Get("lat"), query.Get("lon"))
		switch {
		case errors.Is(err, validation.ErrCoordinateMissing):
			writeError(w, r, http.StatusBadRequest, "MISSING_COORDINATE", msgCoordinateMissing)
			return
		case err != nil:
			writeError(w, r, http.StatusUnprocessableEntity, "INVALID_COORDINATES", err.Error())
			return
		case provided:
			coord = parsed
		default:
			coord = h.defaultLocation
		}
	}

	result := h.temperatures.GetDailyTemperatures(ctx, coord.Lat, coord.Lon)
	if h.outcomes != nil {
		if result.ErrorMessage != nil {
			h.outcomes.RecordError()
		} else {
			h.outcomes.RecordSuccess()
		}
	}
	writeJSON(w, http.StatusOK, weatherResponse{
		Location:     locationJSON{Lat: &coord.Lat, Lon: &coord.Lon},
		Temperatures: result.Temperatures,
		ErrorMessage: result.ErrorMessage,
	})
}

// Search handles GET /search?place=.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	place, err := validation.ValidatePlace(r.URL.Query().Get("place"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_PLACE", err.Error())
		return
	}
	coord, found, err := h.places.Search(r.Context(), place)
	if err != nil {
		writeServiceError(w, r, "GEOCODING_UNAVAILABLE", "Unable to look up place", err)
		return
	}
	if !found {
		writeError(w, r, http.StatusNotFound, "PLACE_NOT_FOUND", msgPlaceNotFound)
		return
	}
	writeJSON(w, http.StatusOK, searchResponse{Place: place, Lat: coord.Lat, Lon: coord.Lon})
}

// healthResult holds the computed health status and metadata for logging.
type healthResult struct {
	status     string
	statusCode int
	reason     string
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	result := h.computeHealthStatus()

	h.healthStatusMu.Lock()
	prev := h.healthStatusPrev
	if prev != "" && prev != result.status {
		h.logger.Info("health status transition",
			zap.String("previous_status", prev),
			zap.String("current_status", result.status),
			zap.String("reason", result.reason))
	}
	h.healthStatusPrev = result.status
	h.healthStatusMu.Unlock()

	checks := map[string]string{"forecastApi": "healthy"}
	if result.reason == "error_rate_breach" {
		checks["forecastApi"] = "unhealthy"
	}
	if h.healthConfig != nil && h.healthConfig.CachePing != nil {
		if err := h.healthConfig.CachePing(); err != nil {
			checks["cache"] = "unhealthy"
			observability.LoggerFromContext(r.Context(), h.logger).Debug("cache ping failed", zap.Error(err))
		} else {
			checks["cache"] = "healthy"
		}
	}
	resp := map[string]interface{}{
		"status":    result.status,
		"service":   "temp14-service",
		"version":   "dev",
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if h.state != nil {
		resp["uptimeSeconds"] = int64(h.state.Uptime().Seconds())
	}
	writeJSON(w, result.statusCode, resp)
}

// computeHealthStatus evaluates conditions in priority order: shutting-down > degraded > healthy.
// A failing cache is reported in checks but does not degrade the service; lookups fall back to upstream.
func (h *Handler) computeHealthStatus() healthResult {
	if h.state != nil && h.state.IsShuttingDown() {
		return healthResult{"shutting-down", http.StatusServiceUnavailable, "signal"}
	}
	if h.healthConfig != nil && h.outcomes != nil && h.healthConfig.DegradedWindow > 0 {
		if h.outcomes.Degraded(h.healthConfig.DegradedWindow, h.healthConfig.DegradedErrorPct) {
			return healthResult{"degraded", http.StatusServiceUnavailable, "error_rate_breach"}
		}
	}
	return healthResult{"healthy", http.StatusOK, ""}
}

// writeJSON writes a JSON response with the specified HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an error response in the standard error format with code, message,
// and requestId (correlation ID) if available in request context.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":      code,
			"message":   message,
			"requestId": observability.CorrelationID(r.Context()),
		},
	})
}

// writeServiceError writes a 503 for upstream failures and logs the cause at DEBUG.
func writeServiceError(w http.ResponseWriter, r *http.Request, code, message string, err error) {
	writeError(w, r, http.StatusServiceUnavailable, code, message)
	observability.LoggerFromContext(r.Context(), nil).Debug("upstream error", zap.Error(err))
}

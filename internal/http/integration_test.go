//go:build integration
// +build integration

package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/temp14-service/internal/lifecycle"
	"github.com/kjstillabower/temp14-service/internal/models"
	testhelpers "github.com/kjstillabower/temp14-service/internal/testhelpers"
	"github.com/kjstillabower/temp14-service/internal/traffic"
)

func newIntegrationRouter(t *testing.T) http.Handler {
	t.Helper()
	stack := testhelpers.SetupIntegrationStack(t, testhelpers.GetIntegrationConfig(t))
	h := NewHandler(stack.Forecasts, stack.Places, belgrade, lifecycle.New(), traffic.NewWindow(), nil, zap.NewNop())
	return NewRouter(h, zap.NewNop(), 25*time.Second)
}

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// TestIntegration_GetWeather_Default verifies the live forecast for the default location.
func TestIntegration_GetWeather_Default(t *testing.T) {
	router := newIntegrationRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/weather", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200. Body: %s", w.Code, w.Body.String())
	}
	var body struct {
		Temperatures []models.DailyTemperature `json:"temperatures"`
		ErrorMessage *string                   `json:"error_message"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.ErrorMessage != nil {
		t.Fatalf("error_message = %q", *body.ErrorMessage)
	}
	if len(body.Temperatures) == 0 {
		t.Fatal("expected at least one 14:00 temperature")
	}
	for _, dt := range body.Temperatures {
		if !datePattern.MatchString(dt.Date) {
			t.Errorf("date %q not YYYY-MM-DD", dt.Date)
		}
	}
}

// TestIntegration_GetWeather_Place verifies geocoding plus forecast.
func TestIntegration_GetWeather_Place(t *testing.T) {
	router := newIntegrationRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/weather?place=Denpasar", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200. Body: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"lat":-8.`) {
		t.Errorf("expected Denpasar latitude in body: %s", w.Body.String())
	}
}

// TestIntegration_GetWeather_OutOfRange verifies the upstream 400 is surfaced as a message.
func TestIntegration_GetWeather_OutOfRange(t *testing.T) {
	router := newIntegrationRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/weather?lat=100&lon=0", nil))

	if !strings.Contains(w.Body.String(), "Error code 400 requesting weather forecast API.") {
		t.Errorf("body = %s", w.Body.String())
	}
}

// TestIntegration_Search verifies the live search endpoint.
func TestIntegration_Search(t *testing.T) {
	router := newIntegrationRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/search?place=Belgrade", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200. Body: %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/search?place=Qwxzvbnmplk", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("Status = %d, want 404 for nonsense place", w.Code)
	}
}

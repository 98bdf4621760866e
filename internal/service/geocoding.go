package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/kjstillabower/temp14-service/internal/client"
	"github.com/kjstillabower/temp14-service/internal/models"
	"github.com/kjstillabower/temp14-service/internal/observability"
)

// GeocodingService resolves place names for the HTTP layer.
type GeocodingService struct {
	geocoder client.Geocoder
	logger   *zap.Logger
}

func NewGeocodingService(geocoder client.Geocoder, logger *zap.Logger) *GeocodingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GeocodingService{geocoder: geocoder, logger: logger}
}

// Search returns the coordinates for place. found is false when the provider has no match.
func (s *GeocodingService) Search(ctx context.Context, place string) (models.Coordinate, bool, error) {
	logger := observability.LoggerFromContext(ctx, s.logger)

	coord, found, err := s.geocoder.Geocode(ctx, place)
	switch {
	case err != nil:
		observability.GeocodeLookupsTotal.WithLabelValues("error").Inc()
		logger.Warn("geocoding failed", zap.String("place", place), zap.Error(err))
		return models.Coordinate{}, false, err
	case !found:
		observability.GeocodeLookupsTotal.WithLabelValues("not_found").Inc()
		logger.Debug("place not found", zap.String("place", place))
		return models.Coordinate{}, false, nil
	}
	observability.GeocodeLookupsTotal.WithLabelValues("found").Inc()
	return coord, true, nil
}

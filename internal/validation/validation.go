package validation

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/kjstillabower/temp14-service/internal/models"
)

// MaxPlaceLength bounds place names in runes. Nominatim rejects very long queries.
const MaxPlaceLength = 200

// ErrPlaceEmpty is returned when place is empty or whitespace-only after trim.
var ErrPlaceEmpty = errors.New("place is required")

// ErrPlaceTooLong is returned when place length exceeds MaxPlaceLength.
var ErrPlaceTooLong = errors.New("place too long")

// ErrPlaceInvalidChars is returned when place contains disallowed characters.
var ErrPlaceInvalidChars = errors.New("place contains invalid characters")

// ErrCoordinateMissing is returned when only one of lat and lon is supplied.
var ErrCoordinateMissing = errors.New("one of lat and lon is missing")

// ErrCoordinateInvalid is returned when lat or lon is not a finite decimal number.
var ErrCoordinateInvalid = errors.New("lat and lon must be decimal numbers")

type placeQuery struct {
	Place string `validate:"required,max=200,placename"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("placename", func(fl validator.FieldLevel) bool {
		for _, c := range fl.Field().String() {
			if !isAllowedPlaceRune(c) {
				return false
			}
		}
		return true
	}); err != nil {
		panic(err)
	}
	return v
}

// ValidatePlace trims the input, enforces the length bound and restricts to allowed
// characters: letters (Unicode), digits, space, comma, hyphen, period, apostrophe.
// Returns the trimmed string or an error suitable for a 400 response.
func ValidatePlace(input string) (string, error) {
	q := placeQuery{Place: strings.TrimSpace(input)}
	err := validate.Struct(q)
	if err == nil {
		return q.Place, nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "", err
	}
	switch verrs[0].Tag() {
	case "required":
		return "", ErrPlaceEmpty
	case "max":
		return "", ErrPlaceTooLong
	default:
		return "", ErrPlaceInvalidChars
	}
}

// isAllowedPlaceRune returns true for letters (Unicode), digits, space, comma, hyphen, period, apostrophe.
func isAllowedPlaceRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsMark(r) {
		return true
	}
	switch r {
	case ' ', ',', '-', '.', '\'':
		return true
	}
	return false
}

// ParseCoordinate parses raw lat and lon query values. provided is false when both are
// empty. Range is not checked here; the forecast API reports out-of-range values itself.
func ParseCoordinate(rawLat, rawLon string) (coord models.Coordinate, provided bool, err error) {
	rawLat, rawLon = strings.TrimSpace(rawLat), strings.TrimSpace(rawLon)
	switch {
	case rawLat == "" && rawLon == "":
		return models.Coordinate{}, false, nil
	case rawLat == "" || rawLon == "":
		return models.Coordinate{}, true, ErrCoordinateMissing
	}
	lat, err := parseFinite(rawLat)
	if err != nil {
		return models.Coordinate{}, true, ErrCoordinateInvalid
	}
	lon, err := parseFinite(rawLon)
	if err != nil {
		return models.Coordinate{}, true, ErrCoordinateInvalid
	}
	return models.Coordinate{Lat: lat, Lon: lon}, true, nil
}

func parseFinite(s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, strconv.ErrRange
	}
	return f, nil
}

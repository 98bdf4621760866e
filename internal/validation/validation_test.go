package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/kjstillabower/temp14-service/internal/models"
)

func TestValidatePlace_EmptyAndWhitespace(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"spaces", "   "},
		{"tab", "\t"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ValidatePlace(tc.input)
			if !errors.Is(err, ErrPlaceEmpty) {
				t.Errorf("error = %v, want ErrPlaceEmpty", err)
			}
		})
	}
}

func TestValidatePlace_TooLong(t *testing.T) {
	_, err := ValidatePlace(strings.Repeat("a", MaxPlaceLength+1))
	if !errors.Is(err, ErrPlaceTooLong) {
		t.Errorf("error = %v, want ErrPlaceTooLong", err)
	}
	// Length counts runes, not bytes.
	if _, err := ValidatePlace(strings.Repeat("ž", MaxPlaceLength)); err != nil {
		t.Errorf("200 multi-byte runes: unexpected error %v", err)
	}
}

func TestValidatePlace_InvalidChars(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"slash", "bel/grade"},
		{"backslash", "bel\\grade"},
		{"semicolon", "Belgrade;DROP"},
		{"angle brackets", "<script>"},
		{"newline", "Bel\ngrade"},
		{"question mark", "where?"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ValidatePlace(tc.input)
			if !errors.Is(err, ErrPlaceInvalidChars) {
				t.Errorf("error = %v, want ErrPlaceInvalidChars", err)
			}
		})
	}
}

func TestValidatePlace_Valid(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Belgrade", "Belgrade"},
		{"  New York  ", "New York"},
		{"São Paulo", "São Paulo"},
		{"St. Petersburg", "St. Petersburg"},
		{"Côte d'Ivoire", "Côte d'Ivoire"},
		{"Denpasar, Bali", "Denpasar, Bali"},
		{"Stratford-upon-Avon", "Stratford-upon-Avon"},
		{"東京", "東京"},
		{"District 9", "District 9"},
	}
	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			got, err := ValidatePlace(tc.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestParseCoordinate(t *testing.T) {
	tests := []struct {
		name         string
		lat, lon     string
		want         models.Coordinate
		wantProvided bool
		wantErr      error
	}{
		{name: "neither", lat: "", lon: "", wantProvided: false},
		{name: "both", lat: "44.8178131", lon: "20.4568974", want: models.Coordinate{Lat: 44.8178131, Lon: 20.4568974}, wantProvided: true},
		{name: "negative", lat: "-8.65", lon: "-74", want: models.Coordinate{Lat: -8.65, Lon: -74}, wantProvided: true},
		{name: "out of range is not rejected", lat: "100", lon: "0", want: models.Coordinate{Lat: 100, Lon: 0}, wantProvided: true},
		{name: "lat only", lat: "44.8", lon: "", wantProvided: true, wantErr: ErrCoordinateMissing},
		{name: "lon only", lat: " ", lon: "20.4", wantProvided: true, wantErr: ErrCoordinateMissing},
		{name: "not a number", lat: "north", lon: "20.4", wantProvided: true, wantErr: ErrCoordinateInvalid},
		{name: "nan", lat: "NaN", lon: "20.4", wantProvided: true, wantErr: ErrCoordinateInvalid},
		{name: "inf", lat: "44", lon: "Inf", wantProvided: true, wantErr: ErrCoordinateInvalid},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, provided, err := ParseCoordinate(tc.lat, tc.lon)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("err = %v, want %v", err, tc.wantErr)
			}
			if provided != tc.wantProvided {
				t.Errorf("provided = %v, want %v", provided, tc.wantProvided)
			}
			if tc.wantErr == nil && got != tc.want {
				t.Errorf("coord = %+v, want %+v", got, tc.want)
			}
		})
	}
}

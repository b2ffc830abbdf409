package timeparse

import (
	"testing"
	"time"
)

func TestParseAge(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Duration
		wantErr bool
	}{
		{"hours", "36h", 36 * time.Hour, false},
		{"hour singular", "1hour", time.Hour, false},
		{"days short", "1d", 24 * time.Hour, false},
		{"days plural", "2days", 48 * time.Hour, false},
		{"weeks", "2weeks", 14 * 24 * time.Hour, false},
		{"months", "6mo", 180 * 24 * time.Hour, false},
		{"month singular", "1month", 30 * 24 * time.Hour, false},
		{"years", "1y", 365 * 24 * time.Hour, false},
		{"upper case unit", "3D", 72 * time.Hour, false},
		{"with spaces", " 10 d ", 240 * time.Hour, false},
		{"zero", "0d", 0, false},

		{"empty string", "", 0, true},
		{"no unit", "123", 0, true},
		{"minutes not supported", "10m", 0, true},
		{"seconds not supported", "10s", 0, true},
		{"no number", "d", 0, true},
		{"negative", "-1d", 0, true},
		{"combined units not supported", "1w2d", 0, true},
		{"fractional not supported", "1.5d", 0, true},
		{"overflow", "9999999999y", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAge(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseAge(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
				return
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseAge(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

package filter

import (
	"errors"
	"testing"
	"time"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Duration
		wantErr error
	}{
		{name: "days", input: "7d", want: 7 * Day},
		{name: "single day", input: "1d", want: Day},
		{name: "weeks", input: "4w", want: 4 * Week},
		{name: "months", input: "6mo", want: 6 * Month},
		{name: "years", input: "1y", want: Year},
		{name: "fractional days", input: "2.5d", want: 60 * time.Hour},
		{name: "uppercase suffix", input: "7D", want: 7 * Day},
		{name: "surrounding whitespace", input: "  30d  ", want: 30 * Day},
		{name: "go duration hours", input: "36h", want: 36 * time.Hour},
		{name: "go duration composite", input: "1h30m", want: 90 * time.Minute},
		{name: "minutes", input: "15m", want: 15 * time.Minute},
		{name: "negative", input: "-1d", wantErr: ErrNegativeDuration},
		{name: "empty", input: "", wantErr: ErrInvalidDuration},
		{name: "garbage", input: "soon", wantErr: ErrInvalidDuration},
		{name: "unknown suffix", input: "10x", wantErr: ErrInvalidDuration},
		{name: "bare number", input: "42", wantErr: ErrInvalidDuration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDuration(tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDuration(%q): %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseDuration(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

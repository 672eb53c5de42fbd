package overlay

import (
	"errors"
	"testing"

	"go.mgrd.me/perq/internal/types"
)

func TestParseCoords(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    types.Region
		wantErr error
	}{
		{
			name:  "plain",
			input: "10,20,300,400",
			want:  types.Region{X: 10, Y: 20, Width: 300, Height: 400},
		},
		{
			name:  "trailing newline",
			input: "0,0,50,50\n",
			want:  types.Region{Width: 50, Height: 50},
		},
		{
			name:  "spaces between fields",
			input: "1, 2, 3, 4",
			want:  types.Region{X: 1, Y: 2, Width: 3, Height: 4},
		},
		{
			name:  "negative origin on secondary display",
			input: "-1440,0,800,600",
			want:  types.Region{X: -1440, Y: 0, Width: 800, Height: 600},
		},
		{
			name:    "cancelled marker",
			input:   "CANCELLED",
			wantErr: ErrCancelled,
		},
		{
			name:    "empty file",
			input:   "",
			wantErr: ErrCancelled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseCoords(tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("parseCoords() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseCoords() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("parseCoords() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseCoordsMalformed(t *testing.T) {
	for _, input := range []string{"1,2,3", "1,2,3,4,5", "a,b,c,d", "1;2;3;4"} {
		if _, err := parseCoords(input); err == nil {
			t.Errorf("parseCoords(%q) = nil error, want malformed", input)
		}
	}
}

func TestRegionValidAfterParse(t *testing.T) {
	small, err := parseCoords("0,0,49,200")
	if err != nil {
		t.Fatalf("parseCoords() error = %v", err)
	}
	if small.Valid() {
		t.Error("49pt wide region should not be valid")
	}

	ok, err := parseCoords("0,0,50,50")
	if err != nil {
		t.Fatalf("parseCoords() error = %v", err)
	}
	if !ok.Valid() {
		t.Error("50x50 region should be valid")
	}
}

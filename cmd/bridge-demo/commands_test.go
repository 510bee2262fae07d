package main

import (
	"errors"
	"testing"

	"github.com/evalysfun/evalys-arcium-bridge-service/internal/asset"
	"github.com/evalysfun/evalys-arcium-bridge-service/pkg/bridgeclient"
)

func TestParseSize(t *testing.T) {
	tests := []struct {
		in      string
		want    asset.Lamports
		wantErr error
	}{
		{in: "", want: 0},
		{in: "2.5", want: 2_500_000_000},
		{in: "0.000000001", want: 1},
		{in: "0.0000000001", wantErr: asset.ErrTooManyDecimals},
		{in: "-1", wantErr: asset.ErrNegativeAmount},
		{in: "0"},
		{in: "9223372037"},
		{in: "lots"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseSize(tt.in)
			wantErr := tt.wantErr != nil || (tt.in != "" && tt.want == 0)
			if wantErr {
				if err == nil {
					t.Fatalf("parseSize(%q) = %d, want error", tt.in, got)
				}
				if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
					t.Fatalf("parseSize(%q) error = %v, want %v", tt.in, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseSize(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("parseSize(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestDemo_SizeOverridesSamples(t *testing.T) {
	d := &demo{size: 2_500_000_000}

	plan := d.planRequest()
	if plan.UserPreferences.DesiredSize != 2_500_000_000 {
		t.Errorf("desired_size = %d, want 2500000000", plan.UserPreferences.DesiredSize)
	}

	curve := d.curveRequest()
	if curve.SizingPreferences.TargetSize != 2_500_000_000 {
		t.Errorf("target_size = %d, want 2500000000", curve.SizingPreferences.TargetSize)
	}
	if curve.SizingPreferences.MaxSize != 2_500_000_000 {
		t.Errorf("max_size = %d, want 2500000000", curve.SizingPreferences.MaxSize)
	}
	if err := curve.SizingPreferences.Validate(); err != nil {
		t.Errorf("sized curve request invalid: %v", err)
	}

	unsized := &demo{}
	if got, want := unsized.planRequest(), bridgeclient.SamplePlanRequest(); got != want {
		t.Errorf("plan request changed without --size: %+v", got)
	}
}

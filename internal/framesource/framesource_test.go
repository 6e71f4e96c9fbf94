package framesource_test

import (
	"context"
	"errors"
	"testing"

	"svoextract/internal/framesource"
)

func TestParseDepthMode(t *testing.T) {
	cases := []struct {
		in      string
		want    framesource.DepthMode
		wantErr bool
	}{
		{"", framesource.DepthUltra, false},
		{"neural", framesource.DepthNeural, false},
		{" Quality ", framesource.DepthQuality, false},
		{"PERFORMANCE", framesource.DepthPerformance, false},
		{"fast", "", true},
	}
	for _, tc := range cases {
		got, err := framesource.ParseDepthMode(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("ParseDepthMode(%q) expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseDepthMode(%q) failed: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseDepthMode(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestMeasureShapeAndAt(t *testing.T) {
	m := &framesource.Measure{Width: 2, Height: 1, Channels: 4, Data: []float32{1, 2, 3, 4, 5, 6, 7, 8}}
	if got := m.At(1, 0, 2); got != 7 {
		t.Fatalf("At = %v, want 7", got)
	}
	if shape := m.Shape(); len(shape) != 3 || shape[0] != 1 || shape[1] != 2 || shape[2] != 4 {
		t.Fatalf("unexpected shape %v", shape)
	}
	single := &framesource.Measure{Width: 3, Height: 2, Channels: 1}
	if shape := single.Shape(); len(shape) != 2 {
		t.Fatalf("expected 2-d shape, got %v", shape)
	}
}

func TestRegistryLookup(t *testing.T) {
	called := false
	framesource.Register("Test-Backend", framesource.OpenerFunc(func(context.Context, string, framesource.DepthMode) (framesource.Source, error) {
		called = true
		return nil, framesource.ErrOpenFailed
	}))
	opener, err := framesource.Lookup("test-backend")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if _, err := opener.Open(context.Background(), "x", framesource.DepthUltra); !errors.Is(err, framesource.ErrOpenFailed) {
		t.Fatalf("expected ErrOpenFailed, got %v", err)
	}
	if !called {
		t.Fatal("expected registered opener to be invoked")
	}
	if _, err := framesource.Lookup("missing"); !errors.Is(err, framesource.ErrUnknownBackend) {
		t.Fatalf("expected ErrUnknownBackend, got %v", err)
	}
}

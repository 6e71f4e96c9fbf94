package logging

import "testing"

func TestNewProgressSampler(t *testing.T) {
	tests := []struct {
		name       string
		bucketSize float64
		wantSize   float64
	}{
		{"default bucket size for zero", 0, 5},
		{"default bucket size for negative", -1, 5},
		{"custom bucket size", 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewProgressSampler(tt.bucketSize)
			if s.bucketSize != tt.wantSize {
				t.Errorf("bucketSize = %v, want %v", s.bucketSize, tt.wantSize)
			}
			if s.lastBucket != -1 {
				t.Errorf("lastBucket = %d, want -1", s.lastBucket)
			}
		})
	}
}

func TestProgressSampler_NilSampler(t *testing.T) {
	var s *ProgressSampler
	if !s.ShouldLog(50, "stage") {
		t.Error("ShouldLog on nil sampler should always return true")
	}
	s.Reset()
}

func TestProgressSampler_Buckets(t *testing.T) {
	s := NewProgressSampler(5)
	steps := []struct {
		percent float64
		want    bool
	}{
		{0, true},
		{1, false},
		{4.9, false},
		{5, true},
		{7, false},
		{25, true},
		{20, false},
		{100, true},
		{100, false},
	}
	for i, step := range steps {
		if got := s.ShouldLog(step.percent, "recording.svo2"); got != step.want {
			t.Fatalf("step %d (%v%%): ShouldLog = %v, want %v", i, step.percent, got, step.want)
		}
	}
}

func TestProgressSampler_StageChangeResetsBucket(t *testing.T) {
	s := NewProgressSampler(5)
	if !s.ShouldLog(50, "a.svo2") {
		t.Fatal("first report should log")
	}
	if s.ShouldLog(50, "a.svo2") {
		t.Fatal("repeat should not log")
	}
	if !s.ShouldLog(10, "b.svo2") {
		t.Fatal("new stage should log")
	}
	if s.lastStage != "b.svo2" {
		t.Fatalf("lastStage = %q", s.lastStage)
	}
	s.Reset()
	if s.lastStage != "" || s.lastBucket != -1 {
		t.Fatal("Reset should clear state")
	}
}

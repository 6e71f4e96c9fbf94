package textutil

import "testing"

func TestFileStem(t *testing.T) {
	cases := []struct {
		name string
		want string
	}{
		{"walk.through.svo2", "walk.through"},
		{"/data/uploads/lab:run*1.svo2", "lab-run-1"},
		{"what?\x00.svo", "what"},
		{"  spaced name.svo2 ", "spaced name"},
		{"", "recording"},
		{"...svo2", "recording"},
	}
	for _, tc := range cases {
		if got := FileStem(tc.name, "recording"); got != tc.want {
			t.Fatalf("FileStem(%q) = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestTitleLabel(t *testing.T) {
	if got := TitleLabel("stereo_left"); got != "Stereo Left" {
		t.Fatalf("TitleLabel = %q", got)
	}
	if got := TitleLabel("processing"); got != "Processing" {
		t.Fatalf("TitleLabel = %q", got)
	}
}

func TestFormatBytes(t *testing.T) {
	cases := map[uint64]string{
		0:       "0 B",
		1023:    "1023 B",
		1024:    "1.0 KiB",
		1536:    "1.5 KiB",
		5 << 30: "5.0 GiB",
	}
	for input, want := range cases {
		if got := FormatBytes(input); got != want {
			t.Fatalf("FormatBytes(%d) = %q, want %q", input, got, want)
		}
	}
}

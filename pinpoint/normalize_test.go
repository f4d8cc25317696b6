package pinpoint

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases", "Vitamin D", "vitamin d"},
		{"collapses runs", "daily   intake\t\tof  water", "daily intake of water"},
		{"newlines become spaces", "line one\nline two", "line one line two"},
		{"trims ends", "  padded  ", "padded"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	in := "Daily  INTAKE\nof water"
	once := Normalize(in)
	if twice := Normalize(once); twice != once {
		t.Errorf("Normalize not idempotent: %q then %q", once, twice)
	}
}

func TestFoldSpanToOriginal(t *testing.T) {
	// folded search hit must map back to original byte offsets
	ft := fold("The  LAKE", foldOptions{collapseWhitespace: true})
	if ft.s != "the lake" {
		t.Fatalf("folded = %q, want %q", ft.s, "the lake")
	}

	// "lake" in folded form is [4, 8); original is [5, 9)
	start, end := ft.spanToOriginal(4, 8)
	if start != 5 || end != 9 {
		t.Errorf("spanToOriginal(4, 8) = (%d, %d), want (5, 9)", start, end)
	}
}

func TestFoldSpanToOriginalBadSpans(t *testing.T) {
	ft := fold("abc", foldOptions{})
	for _, span := range [][2]int{{-1, 2}, {2, 2}, {2, 1}, {0, 99}} {
		start, end := ft.spanToOriginal(span[0], span[1])
		if start != 0 || end != 0 {
			t.Errorf("spanToOriginal(%d, %d) = (%d, %d), want (0, 0)", span[0], span[1], start, end)
		}
	}
}

func TestStripCitationMarkers(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Intake is 600 IU[12] daily.", "Intake is 600 IU daily."},
		{"As shown[a] above.", "As shown above."},
		{"Disputed.[citation needed]", "Disputed."},
		{"Section[edit] heading", "Section heading"},
		{"No markers here.", "No markers here."},
		{"[2020] is a year, not a citation? Still stripped: [2020]", " is a year, not a citation? Still stripped: "},
	}

	for _, tt := range tests {
		if got := StripCitationMarkers(tt.in); got != tt.want {
			t.Errorf("StripCitationMarkers(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

package storage

import "testing"

func TestCursor_RoundTrip(t *testing.T) {
	offsets := []int{0, 1, 50, 199, 12345}

	for _, offset := range offsets {
		cursor := encodeCursor(offset)
		if cursor == "" {
			t.Fatalf("encodeCursor(%d) returned empty cursor", offset)
		}
		if got := decodeCursor(cursor); got != offset {
			t.Errorf("round-trip failed: encoded %d, decoded %d", offset, got)
		}
	}
}

func TestCursor_MalformedDecodesToZero(t *testing.T) {
	tests := []struct {
		name   string
		cursor string
	}{
		{name: "empty", cursor: ""},
		{name: "not base64", cursor: "!!!not-base64!!!"},
		{name: "base64 but not json", cursor: "bm90LWpzb24"},
		{name: "wrong json shape", cursor: "WyJhcnJheSJd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := decodeCursor(tt.cursor); got != 0 {
				t.Errorf("decodeCursor(%q) = %d, want 0", tt.cursor, got)
			}
		})
	}
}

func TestCursor_NegativeOffsetDecodesToZero(t *testing.T) {
	if got := decodeCursor(encodeCursor(-5)); got != 0 {
		t.Errorf("negative offset decoded to %d, want 0", got)
	}
}

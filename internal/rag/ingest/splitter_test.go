package ingest

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplitText_InvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
	}{
		{"overlap equals size", 10, 10},
		{"overlap above size", 10, 12},
		{"negative overlap", 10, -1},
		{"zero size", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := SplitText("some text", tt.size, tt.overlap); !errors.Is(err, ErrInvalidChunking) {
				t.Errorf("expected ErrInvalidChunking, got %v", err)
			}
		})
	}
}

func TestSplitText_EmptyDocument(t *testing.T) {
	for _, in := range []string{"", "   \n\t "} {
		if _, err := SplitText(in, 100, 10); !errors.Is(err, ErrEmptyDocument) {
			t.Errorf("SplitText(%q): expected ErrEmptyDocument, got %v", in, err)
		}
	}
}

func TestSplitText_SmallDocumentIsOneChunk(t *testing.T) {
	chunks, err := SplitText("short text", 100, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 1 || chunks[0].Content != "short text" || chunks[0].Overlap != 0 {
		t.Errorf("unexpected chunks %+v", chunks)
	}
}

func TestSplitText_Properties(t *testing.T) {
	inputs := []string{
		strings.Repeat("The quick brown fox jumps over the lazy dog. ", 60),
		strings.Repeat("x", 2500),
		strings.Repeat("Grüße aus München – ünïcödé text ", 40),
		"word " + strings.Repeat("a", 300) + " tail",
	}
	configs := []struct{ size, overlap int }{
		{100, 0},
		{100, 20},
		{50, 49},
		{1000, 150},
	}

	for _, in := range inputs {
		for _, cfg := range configs {
			chunks, err := SplitText(in, cfg.size, cfg.overlap)
			if err != nil {
				t.Fatalf("SplitText: %v", err)
			}

			total := 0
			for i, c := range chunks {
				n := utf8.RuneCountInString(c.Content)
				if n > cfg.size {
					t.Errorf("chunk %d has %d runes, limit %d", i, n, cfg.size)
				}
				if i == 0 && c.Overlap != 0 {
					t.Errorf("first chunk must not overlap")
				}
				total += len(c.Content)
			}

			if total < len(in) {
				t.Errorf("chunks dropped content: %d < %d", total, len(in))
			}
			if got := Reconstruct(chunks); got != in {
				t.Errorf("reconstruction mismatch for size=%d overlap=%d", cfg.size, cfg.overlap)
			}
		}
	}
}

func TestSplitText_PrefersWhitespaceBoundary(t *testing.T) {
	chunks, err := SplitText("alpha beta gamma delta", 12, 2)
	if err != nil {
		t.Fatal(err)
	}
	if chunks[0].Content != "alpha beta " {
		t.Errorf("expected window to end after whitespace, got %q", chunks[0].Content)
	}
	if !strings.HasPrefix(chunks[1].Content, "a ") {
		t.Errorf("expected next window to repeat the overlap, got %q", chunks[1].Content)
	}
}

package ingest

import (
	"errors"
	"strings"
	"unicode"
)

var (
	ErrInvalidChunking = errors.New("chunk overlap must be >= 0 and smaller than chunk size")
	ErrEmptyDocument   = errors.New("document has no content")
	ErrEmptyQuery      = errors.New("query is empty")
)

// TextChunk is one window of a split document. Overlap counts the leading runes
// repeated from the previous window.
type TextChunk struct {
	Content string
	Overlap int
}

// SplitText cuts content into rune windows of at most chunkSize runes. A window ends
// after its last whitespace when that still leaves it longer than overlap, otherwise
// it is cut hard. Each following window starts overlap runes before the previous end.
func SplitText(content string, chunkSize int, overlap int) ([]TextChunk, error) {
	if chunkSize <= 0 || overlap < 0 || overlap >= chunkSize {
		return nil, ErrInvalidChunking
	}
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyDocument
	}

	runes := []rune(content)
	n := len(runes)
	var chunks []TextChunk

	for start := 0; ; {
		end := min(start+chunkSize, n)
		if end < n {
			end = softEnd(runes, start, end, overlap)
		}

		shared := 0
		if len(chunks) > 0 {
			shared = overlap
		}
		chunks = append(chunks, TextChunk{Content: string(runes[start:end]), Overlap: shared})

		if end == n {
			return chunks, nil
		}
		start = end - overlap
	}
}

// softEnd moves end back to just after the last whitespace in runes[start:end] when
// the resulting window stays longer than overlap.
func softEnd(runes []rune, start int, end int, overlap int) int {
	for i := end - 1; i >= start; i-- {
		if !unicode.IsSpace(runes[i]) {
			continue
		}
		if i+1-start > overlap {
			return i + 1
		}
		break
	}
	return end
}

// Reconstruct joins chunks ordered by index, dropping each chunk's shared prefix.
func Reconstruct(chunks []TextChunk) string {
	var sb strings.Builder
	for _, c := range chunks {
		r := []rune(c.Content)
		sb.WriteString(string(r[min(c.Overlap, len(r)):]))
	}
	return sb.String()
}

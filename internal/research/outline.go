package research

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/akolanti/ResearchAPI/internal/domain/researchModel"
)

var (
	ErrNoJSON       = errors.New("no JSON object in model reply")
	ErrEmptyOutline = errors.New("outline has no sections")
)

// ParseOutline reads the first JSON object in reply, ignoring any prose or code
// fences around it, and assigns section ids section-1..section-N.
func ParseOutline(reply string) (researchModel.Outline, error) {
	outline, err := decodeFirstObject[researchModel.Outline](reply)
	if err != nil {
		return outline, err
	}

	sections := make([]researchModel.OutlineSection, 0, len(outline.Sections))
	for _, s := range outline.Sections {
		s.Title = strings.TrimSpace(s.Title)
		if s.Title == "" {
			continue
		}
		keywords := s.Keywords[:0]
		for _, k := range s.Keywords {
			if k = strings.TrimSpace(k); k != "" {
				keywords = append(keywords, k)
			}
		}
		s.Keywords = keywords
		s.Id = fmt.Sprintf("section-%d", len(sections)+1)
		sections = append(sections, s)
	}
	if len(sections) == 0 {
		return outline, ErrEmptyOutline
	}
	outline.Sections = sections
	outline.Title = strings.TrimSpace(outline.Title)
	return outline, nil
}

func decodeFirstObject[T any](reply string) (T, error) {
	var lastErr error = ErrNoJSON
	for i := strings.IndexByte(reply, '{'); i >= 0; {
		var v T
		err := json.NewDecoder(strings.NewReader(reply[i:])).Decode(&v)
		if err == nil {
			return v, nil
		}
		lastErr = fmt.Errorf("decoding outline: %w", err)

		next := strings.IndexByte(reply[i+1:], '{')
		if next < 0 {
			break
		}
		i += next + 1
	}
	var zero T
	return zero, lastErr
}

package research

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/akolanti/ResearchAPI/internal/domain/researchModel"
)

var markerPattern = regexp.MustCompile(`\[(\d+)\]`)

func placeholder(title string) string {
	return fmt.Sprintf("[Section unavailable: %s could not be researched]", title)
}

func degradedSection(stub researchModel.OutlineSection, err error) researchModel.Section {
	content := placeholder(stub.Title)
	return researchModel.Section{
		Id:        stub.Id,
		Title:     stub.Title,
		Content:   content,
		Sources:   []researchModel.Source{},
		WordCount: len(strings.Fields(content)),
		Degraded:  true,
		Error:     err.Error(),
	}
}

// citedSources keeps the numbered results referenced by content, in result order,
// and rewrites the markers to point into the kept list. Bracketed numbers outside the
// result range are prose, not markers, and are left alone. Without any valid marker
// every result is kept and content is returned unchanged.
func citedSources(content string, sources []researchModel.Source) (string, []researchModel.Source) {
	cited := make(map[int]bool)
	for _, m := range markerPattern.FindAllStringSubmatch(content, -1) {
		if n, err := strconv.Atoi(m[1]); err == nil && n >= 1 && n <= len(sources) {
			cited[n] = true
		}
	}
	if len(cited) == 0 {
		return content, sources
	}

	kept := make([]researchModel.Source, 0, len(cited))
	renumber := make(map[int]int, len(cited))
	for i, src := range sources {
		if cited[i+1] {
			kept = append(kept, src)
			renumber[i+1] = len(kept)
		}
	}
	return rewriteMarkers(content, renumber, len(sources)), kept
}

// rewriteMarkers renumbers markers in 1..limit through mapping and blanks in-range
// markers with no mapping. Numbers outside 1..limit are kept verbatim.
func rewriteMarkers(content string, mapping map[int]int, limit int) string {
	return markerPattern.ReplaceAllStringFunc(content, func(m string) string {
		n, err := strconv.Atoi(m[1 : len(m)-1])
		if err != nil || n < 1 || n > limit {
			return m
		}
		if to, ok := mapping[n]; ok {
			return "[" + strconv.Itoa(to) + "]"
		}
		return ""
	})
}

func anchor(title string) string {
	var sb strings.Builder
	lastDash := false
	for _, r := range strings.ToLower(title) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			sb.WriteRune(r)
			lastDash = false
		case unicode.IsSpace(r) || r == '-':
			if !lastDash && sb.Len() > 0 {
				sb.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(sb.String(), "-")
}

// Assemble builds the final result from sections in outline order. Section markers
// are renumbered against the deduplicated reference list.
func Assemble(query string, outline researchModel.Outline, sections []researchModel.Section) researchModel.DeepResearchResult {
	refs := researchModel.DedupeSources(sections)
	global := make(map[string]int, len(refs))
	for i, r := range refs {
		global[r.Url] = i + 1
	}

	res := researchModel.DeepResearchResult{
		Query:           query,
		Outline:         outline,
		Sections:        make([]researchModel.Section, len(sections)),
		TableOfContents: make([]researchModel.TOCEntry, 0, len(sections)),
		References:      refs,
		TotalSources:    len(refs),
	}

	var body strings.Builder
	for i, sec := range sections {
		if !sec.Degraded {
			mapping := make(map[int]int, len(sec.Sources))
			for j, src := range sec.Sources {
				mapping[j+1] = global[src.Url]
			}
			sec.Content = rewriteMarkers(sec.Content, mapping, len(sec.Sources))
		} else {
			res.DegradedSections = append(res.DegradedSections, sec.Id)
		}
		res.Sections[i] = sec
		res.TotalWordCount += sec.WordCount

		a := anchor(sec.Title)
		res.TableOfContents = append(res.TableOfContents, researchModel.TOCEntry{SectionId: sec.Id, Title: sec.Title, Anchor: a})

		fmt.Fprintf(&body, "## %s\n\n", sec.Title)
		if sec.Degraded {
			body.WriteString("> **Note:** this section could not be researched and is missing from the report.\n\n")
		}
		body.WriteString(strings.TrimSpace(sec.Content))
		body.WriteString("\n\n")
	}

	var report strings.Builder
	title := outline.Title
	if title == "" {
		title = query
	}
	fmt.Fprintf(&report, "# %s\n\n", title)
	if outline.Summary != "" {
		fmt.Fprintf(&report, "%s\n\n", strings.TrimSpace(outline.Summary))
	}
	report.WriteString("## Table of Contents\n\n")
	for i, e := range res.TableOfContents {
		fmt.Fprintf(&report, "%d. [%s](#%s)\n", i+1, e.Title, e.Anchor)
	}
	report.WriteString("\n")
	report.WriteString(body.String())
	if len(refs) > 0 {
		report.WriteString("## References\n\n")
		for i, r := range refs {
			name := r.Title
			if name == "" {
				name = r.Url
			}
			fmt.Fprintf(&report, "%d. [%s](%s)\n", i+1, name, r.Url)
		}
	}
	res.Report = strings.TrimRight(report.String(), "\n") + "\n"
	return res
}

package researchModel

import (
	"context"
	"time"
)

type State string

const (
	Started          State = "Started"
	OutlineGenerated State = "OutlineGenerated"
	SectionsInFlight State = "SectionsInFlight"
	SectionsComplete State = "SectionsComplete"
	ReportAssembled  State = "ReportAssembled"
	Failed           State = "Failed"
)

type OutlineSection struct {
	Id          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
}

type Outline struct {
	Title    string           `json:"title"`
	Summary  string           `json:"summary"`
	Sections []OutlineSection `json:"sections"`
}

type Source struct {
	Url     string `json:"url"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

type Section struct {
	Id        string   `json:"id"`
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	Sources   []Source `json:"sources"`
	WordCount int      `json:"word_count"`
	Degraded  bool     `json:"degraded,omitempty"`
	Error     string   `json:"error,omitempty"`
}

type TOCEntry struct {
	SectionId string `json:"section_id"`
	Title     string `json:"title"`
	Anchor    string `json:"anchor"`
}

type DeepResearchResult struct {
	Id               string     `json:"id"`
	UserId           string     `json:"user_id,omitempty"`
	Query            string     `json:"query"`
	Outline          Outline    `json:"outline"`
	Sections         []Section  `json:"sections"`
	TableOfContents  []TOCEntry `json:"table_of_contents"`
	References       []Source   `json:"references"`
	Report           string     `json:"report"`
	TotalWordCount   int        `json:"total_word_count"`
	TotalSources     int        `json:"total_sources"`
	DegradedSections []string   `json:"degraded_sections,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

type ResultSummary struct {
	Id             string    `json:"id"`
	Query          string    `json:"query"`
	Title          string    `json:"title"`
	TotalWordCount int       `json:"total_word_count"`
	TotalSources   int       `json:"total_sources"`
	CreatedAt      time.Time `json:"created_at"`
}

type ResultStore interface {
	SaveResult(ctx context.Context, userId string, result DeepResearchResult) error
	GetResult(ctx context.Context, userId string, id string) (DeepResearchResult, error)
	ListResults(ctx context.Context, userId string) ([]ResultSummary, error)
}

// DedupeSources flattens section sources in order, keeping the first occurrence of each URL.
func DedupeSources(sections []Section) []Source {
	seen := make(map[string]bool)
	refs := []Source{}
	for _, sec := range sections {
		for _, src := range sec.Sources {
			if seen[src.Url] {
				continue
			}
			seen[src.Url] = true
			refs = append(refs, src)
		}
	}
	return refs
}

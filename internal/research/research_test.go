package research

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/akolanti/ResearchAPI/internal/data/store"
	"github.com/akolanti/ResearchAPI/internal/domain/jobModel"
	"github.com/akolanti/ResearchAPI/internal/domain/researchModel"
	"github.com/akolanti/ResearchAPI/internal/rag/llm"
	"github.com/akolanti/ResearchAPI/internal/research/websearch"
	"github.com/akolanti/ResearchAPI/pkg/result"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoSectionOutline = `Sure! Here is the plan:
{"title": "Go Concurrency", "summary": "How Go does it.", "sections": [
  {"title": "Goroutines", "description": "basics", "keywords": ["goroutines", "scheduler"]},
  {"title": "Channels", "description": "communication", "keywords": []}
]}`

type mockLLM struct {
	onOutline func(p llm.Prompt) (string, error)
	onSection func(p llm.Prompt) (string, error)
}

func (m *mockLLM) Generate(ctx context.Context, p llm.Prompt) (string, error) {
	if p.JSON {
		return m.onOutline(p)
	}
	if m.onSection != nil {
		return m.onSection(p)
	}
	return "Body citing [1].", nil
}

type mockSearcher struct {
	mu      sync.Mutex
	queries []string
	onQuery func(query string) ([]websearch.Result, error)
}

func (m *mockSearcher) Search(ctx context.Context, query string, k int) ([]websearch.Result, error) {
	m.mu.Lock()
	m.queries = append(m.queries, query)
	m.mu.Unlock()
	return m.onQuery(query)
}

func outlineReply(reply string) func(llm.Prompt) (string, error) {
	return func(llm.Prompt) (string, error) { return reply, nil }
}

func newTestService(l llm.Provider, s websearch.Searcher) Service {
	return NewService(l, s, store.InitInMemoryDocumentStore(), Options{MaxConcurrentSections: 2, ResultsPerQuery: 3})
}

func TestRun_SecondSectionFailureDegrades(t *testing.T) {
	searcher := &mockSearcher{onQuery: func(q string) ([]websearch.Result, error) {
		if q == "Channels" {
			return nil, errors.New("search provider down")
		}
		return []websearch.Result{
			{Title: "Tour", Url: "https://go.dev/tour", Snippet: "tour"},
			{Title: "Blog", Url: "https://go.dev/blog", Snippet: "blog"},
			{Title: "Tour again", Url: "https://go.dev/tour", Snippet: "dup"},
		}, nil
	}}
	l := &mockLLM{
		onOutline: outlineReply(twoSectionOutline),
		onSection: func(p llm.Prompt) (string, error) { return "Goroutines are cheap [1][2][3].", nil },
	}

	res := newTestService(l, searcher).Run(context.Background(), "go concurrency", nil)
	require.True(t, res.IsOk(), "run failed: %v", res.Error())
	out := res.Value()

	require.Len(t, out.Sections, 2)
	first, second := out.Sections[0], out.Sections[1]
	assert.Equal(t, "section-1", first.Id)
	assert.False(t, first.Degraded)
	assert.Len(t, first.Sources, 3)

	assert.Equal(t, "section-2", second.Id)
	assert.True(t, second.Degraded)
	assert.Empty(t, second.Sources)
	assert.Equal(t, "[Section unavailable: Channels could not be researched]", second.Content)
	assert.Contains(t, second.Error, "search provider down")

	assert.Equal(t, 2, out.TotalSources)
	assert.Equal(t, []string{"section-2"}, out.DegradedSections)
	assert.Equal(t, first.WordCount+second.WordCount, out.TotalWordCount)
	assert.Contains(t, out.Report, "could not be researched")
	assert.Contains(t, out.Report, "## Table of Contents")
	assert.NotEmpty(t, out.Id)
}

func TestRun_DedupesReferencesAndRenumbers(t *testing.T) {
	searcher := &mockSearcher{onQuery: func(q string) ([]websearch.Result, error) {
		if q == "goroutines scheduler" {
			return []websearch.Result{
				{Title: "A", Url: "https://a.example", Snippet: "first snippet"},
				{Title: "B", Url: "https://b.example", Snippet: "b"},
			}, nil
		}
		return []websearch.Result{
			{Title: "C", Url: "https://c.example", Snippet: "c"},
			{Title: "A later", Url: "https://a.example", Snippet: "second snippet"},
		}, nil
	}}
	l := &mockLLM{
		onOutline: outlineReply(twoSectionOutline),
		onSection: func(p llm.Prompt) (string, error) {
			if strings.Contains(p.User, "Section: Goroutines") {
				return "Uses A [1] and B [2].", nil
			}
			return "Uses C [1] and A [2].", nil
		},
	}

	res := newTestService(l, searcher).Run(context.Background(), "go concurrency", nil)
	require.True(t, res.IsOk())
	out := res.Value()

	require.Len(t, out.References, 3)
	assert.Equal(t, "https://a.example", out.References[0].Url)
	assert.Equal(t, "first snippet", out.References[0].Snippet)
	assert.Equal(t, "https://c.example", out.References[2].Url)
	assert.Equal(t, 3, out.TotalSources)

	assert.Equal(t, "Uses A [1] and B [2].", out.Sections[0].Content)
	assert.Equal(t, "Uses C [3] and A [1].", out.Sections[1].Content)
	assert.Contains(t, out.Report, "1. [A](https://a.example)")
}

func TestRun_OnlyCitedSourcesKept(t *testing.T) {
	searcher := &mockSearcher{onQuery: func(q string) ([]websearch.Result, error) {
		return []websearch.Result{
			{Title: "A", Url: "https://a.example"},
			{Title: "B", Url: "https://b.example"},
			{Title: "C", Url: "https://c.example"},
		}, nil
	}}
	l := &mockLLM{
		onOutline: outlineReply(`{"title":"T","sections":[{"title":"Only","keywords":["k"]}]}`),
		onSection: func(p llm.Prompt) (string, error) { return "Only C matters [3], not [9].", nil },
	}

	res := newTestService(l, searcher).Run(context.Background(), "q", nil)
	require.True(t, res.IsOk())
	sec := res.Value().Sections[0]
	require.Len(t, sec.Sources, 1)
	assert.Equal(t, "https://c.example", sec.Sources[0].Url)
	assert.Equal(t, "Only C matters [1], not [9].", sec.Content)
}

func TestRun_OutlineFailuresAbort(t *testing.T) {
	tests := []struct {
		name      string
		onOutline func(llm.Prompt) (string, error)
		kind      result.Kind
	}{
		{"unparseable", outlineReply("I cannot help with that."), result.KindParse},
		{"no sections", outlineReply(`{"title":"T","summary":"s","sections":[]}`), result.KindParse},
		{"llm error", func(llm.Prompt) (string, error) { return "", errors.New("provider down") }, result.KindLLM},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			searcher := &mockSearcher{onQuery: func(string) ([]websearch.Result, error) { return nil, nil }}
			var states []researchModel.State
			res := newTestService(&mockLLM{onOutline: tt.onOutline}, searcher).Run(context.Background(), "q", func(s researchModel.State) {
				states = append(states, s)
			})

			require.False(t, res.IsOk())
			assert.Equal(t, tt.kind, res.Kind())
			assert.Empty(t, searcher.queries)
			assert.Equal(t, []researchModel.State{researchModel.Started, researchModel.Failed}, states)
		})
	}
}

func TestRun_StatesInOrder(t *testing.T) {
	searcher := &mockSearcher{onQuery: func(string) ([]websearch.Result, error) {
		return []websearch.Result{{Url: "https://x.example"}}, nil
	}}
	var states []researchModel.State
	res := newTestService(&mockLLM{onOutline: outlineReply(twoSectionOutline)}, searcher).Run(context.Background(), "q", func(s researchModel.State) {
		states = append(states, s)
	})
	require.True(t, res.IsOk())
	assert.Equal(t, []researchModel.State{
		researchModel.Started,
		researchModel.OutlineGenerated,
		researchModel.SectionsInFlight,
		researchModel.SectionsComplete,
		researchModel.ReportAssembled,
	}, states)
	assert.ElementsMatch(t, []string{"goroutines scheduler", "Channels"}, searcher.queries)
}

func TestRun_CancellationAborts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	searcher := &mockSearcher{onQuery: func(string) ([]websearch.Result, error) {
		cancel()
		return nil, context.Canceled
	}}
	res := newTestService(&mockLLM{onOutline: outlineReply(twoSectionOutline)}, searcher).Run(ctx, "q", nil)
	require.False(t, res.IsOk())
	assert.Equal(t, result.KindCanceled, res.Kind())
}

func TestRun_EmptyQuery(t *testing.T) {
	res := newTestService(&mockLLM{}, &mockSearcher{}).Run(context.Background(), "  ", nil)
	assert.Equal(t, result.KindInvalidInput, res.Kind())
}

func TestDecide(t *testing.T) {
	tests := []struct {
		step Step
		kind result.Kind
		want Action
	}{
		{StepOutline, result.KindLLM, Abort},
		{StepOutline, result.KindParse, Abort},
		{StepSearch, result.KindSearch, Degrade},
		{StepSearch, result.KindCanceled, Abort},
		{StepSynthesis, result.KindLLM, Degrade},
		{StepSynthesis, result.KindNone, Degrade},
		{Step("unknown"), result.KindLLM, Abort},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Decide(tt.step, tt.kind), "%s/%s", tt.step, tt.kind)
	}
}

func TestParseOutline(t *testing.T) {
	o, err := ParseOutline("```json\n{\"title\":\"T\",\"sections\":[{\"title\":\" A \",\"keywords\":[\" x \",\"\"]},{\"title\":\"\"},{\"title\":\"B\"}]}\n```")
	require.NoError(t, err)
	require.Len(t, o.Sections, 2)
	assert.Equal(t, "section-1", o.Sections[0].Id)
	assert.Equal(t, "A", o.Sections[0].Title)
	assert.Equal(t, []string{"x"}, o.Sections[0].Keywords)
	assert.Equal(t, "section-2", o.Sections[1].Id)

	_, err = ParseOutline("{not json} then {\"sections\":[{\"title\":\"ok\"}]}")
	assert.NoError(t, err)

	_, err = ParseOutline("no braces")
	assert.ErrorIs(t, err, ErrNoJSON)
}

func TestProcessRequest_RecordsStepsAndResult(t *testing.T) {
	searcher := &mockSearcher{onQuery: func(string) ([]websearch.Result, error) {
		return []websearch.Result{{Url: "https://x.example"}}, nil
	}}
	svc := newTestService(&mockLLM{onOutline: outlineReply(twoSectionOutline)}, searcher)

	var steps []jobModel.InternalStatus
	job := svc.ProcessRequest(context.Background(), jobModel.Job{
		Id: "job-1", JobType: jobModel.JobTypeResearch,
		JobPayload: jobModel.JobPayload{ResearchQuery: "go concurrency"},
	}, func(j jobModel.Job) { steps = append(steps, j.CurrentStep) })

	assert.Equal(t, jobModel.JobStatusComplete, job.Status)
	require.NotNil(t, job.JobPayload.ResearchResult)
	assert.Equal(t, "go concurrency", job.JobPayload.ResearchResult.Query)
	assert.Equal(t, jobModel.InternalStatus(researchModel.ReportAssembled), steps[len(steps)-1])

	failed := newTestService(&mockLLM{onOutline: outlineReply("nope")}, searcher).ProcessRequest(context.Background(), jobModel.Job{
		JobPayload: jobModel.JobPayload{ResearchQuery: "q"},
	}, nil)
	assert.Equal(t, jobModel.JobStatusError, failed.Status)
	assert.Equal(t, "OUTLINE_PARSE_FAILURE", failed.Error.Message)
}

func TestSaveGetList(t *testing.T) {
	svc := newTestService(&mockLLM{}, &mockSearcher{})
	ctx := context.Background()

	res := Assemble("q", researchModel.Outline{Title: "T"}, []researchModel.Section{{Id: "section-1", Title: "S", Content: "c", WordCount: 1}})
	res.Id = "r1"
	require.NoError(t, svc.Save(ctx, "user-1", res))

	got, err := svc.Get(ctx, "user-1", "r1")
	require.NoError(t, err)
	assert.Equal(t, "T", got.Outline.Title)

	_, err = svc.Get(ctx, "user-2", "r1")
	assert.Error(t, err)

	list, err := svc.List(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "r1", list[0].Id)

	assert.ErrorIs(t, svc.Save(ctx, "user-1", researchModel.DeepResearchResult{}), result.ErrInvalidInput)
}

func TestCitedSources_KeepsBracketedProse(t *testing.T) {
	sources := []researchModel.Source{
		{Url: "https://a.example", Title: "A"},
		{Url: "https://b.example", Title: "B"},
	}

	tests := []struct {
		name     string
		content  string
		want     string
		wantUrls []string
	}{
		{
			name:     "No_Citations",
			content:  "Go 1.0 shipped in [2012] and generics came later.",
			want:     "Go 1.0 shipped in [2012] and generics came later.",
			wantUrls: []string{"https://a.example", "https://b.example"},
		},
		{
			name:     "With_Citation",
			content:  "Go 1.0 shipped in [2012] per [2].",
			want:     "Go 1.0 shipped in [2012] per [1].",
			wantUrls: []string{"https://b.example"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, kept := citedSources(tt.content, sources)
			assert.Equal(t, tt.want, got)
			urls := make([]string, 0, len(kept))
			for _, k := range kept {
				urls = append(urls, k.Url)
			}
			assert.Equal(t, tt.wantUrls, urls)
		})
	}
}

func TestAssemble_KeepsBracketedProse(t *testing.T) {
	outline := researchModel.Outline{Title: "T", Sections: []researchModel.OutlineSection{{Id: "section-1", Title: "One"}}}
	sections := []researchModel.Section{{
		Id:        "section-1",
		Title:     "One",
		Content:   "Released in [2012], see [1].",
		Sources:   []researchModel.Source{{Url: "https://a.example"}},
		WordCount: 4,
	}}

	res := Assemble("q", outline, sections)
	assert.Equal(t, "Released in [2012], see [1].", res.Sections[0].Content)
	assert.Equal(t, 1, res.TotalSources)
}

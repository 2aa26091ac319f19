package research

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/akolanti/ResearchAPI/internal/config"
	"github.com/akolanti/ResearchAPI/internal/domain/jobModel"
	"github.com/akolanti/ResearchAPI/internal/domain/researchModel"
	"github.com/akolanti/ResearchAPI/internal/metrics"
	"github.com/akolanti/ResearchAPI/internal/rag/llm"
	"github.com/akolanti/ResearchAPI/internal/research/websearch"
	"github.com/akolanti/ResearchAPI/pkg/logger_i"
	"github.com/akolanti/ResearchAPI/pkg/result"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

var (
	ErrEmptyQuery = errors.New("research query is empty")
	ErrNoResults  = errors.New("web search returned no results")
)

var tracer trace.Tracer = otel.Tracer("researchapi/internal/research")

// Progress is called on every state transition of a run.
type Progress func(state researchModel.State)

type Options struct {
	MaxConcurrentSections int
	ResultsPerQuery       int
}

func DefaultOptions() Options {
	return Options{
		MaxConcurrentSections: config.MaxConcurrentSections,
		ResultsPerQuery:       config.SearchResultsPerQuery,
	}
}

type Service interface {
	// Run produces a report for query. Only outline failures and cancellation end
	// the run with an error; failed sections are degraded in place.
	Run(ctx context.Context, query string, progress Progress) result.Result[researchModel.DeepResearchResult]
	// ProcessRequest runs a research job, reporting each state through onStep.
	ProcessRequest(ctx context.Context, job jobModel.Job, onStep func(jobModel.Job)) jobModel.Job
	Save(ctx context.Context, userId string, res researchModel.DeepResearchResult) error
	Get(ctx context.Context, userId string, id string) (researchModel.DeepResearchResult, error)
	List(ctx context.Context, userId string) ([]researchModel.ResultSummary, error)
}

type service struct {
	llmProvider llm.Provider
	searcher    websearch.Searcher
	results     researchModel.ResultStore
	opts        Options
	logger      *logger_i.Logger
}

func NewService(provider llm.Provider, searcher websearch.Searcher, results researchModel.ResultStore, opts Options) Service {
	if opts.MaxConcurrentSections <= 0 {
		opts.MaxConcurrentSections = config.MaxConcurrentSections
	}
	if opts.ResultsPerQuery <= 0 {
		opts.ResultsPerQuery = config.SearchResultsPerQuery
	}
	return &service{
		llmProvider: provider,
		searcher:    searcher,
		results:     results,
		opts:        opts,
		logger:      logger_i.NewLogger("Research"),
	}
}

func (s *service) Run(ctx context.Context, query string, progress Progress) result.Result[researchModel.DeepResearchResult] {
	if progress == nil {
		progress = func(researchModel.State) {}
	}
	log := s.logger.Ctx(ctx)
	query = strings.TrimSpace(query)
	if query == "" {
		return result.Err[researchModel.DeepResearchResult](result.KindInvalidInput, ErrEmptyQuery)
	}

	ctx, span := tracer.Start(ctx, "research.run", trace.WithAttributes(attribute.String("research.query", query)))
	defer span.End()

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("deep_research", time.Since(start)) }()

	progress(researchModel.Started)

	outline := s.outlineStep(ctx, query)
	if !outline.IsOk() {
		log.Error("Outline generation failed", "kind", outline.Kind(), "error", outline.Error())
		return s.fail(span, progress, outline.Error())
	}
	progress(researchModel.OutlineGenerated)
	log.Info("Outline generated", "title", outline.Value().Title, "sections", len(outline.Value().Sections))

	progress(researchModel.SectionsInFlight)
	sections, err := s.researchSections(ctx, query, outline.Value().Sections)
	if err == nil && ctx.Err() != nil {
		err = result.NewError(result.KindCanceled, ctx.Err())
	}
	if err != nil {
		log.Error("Research aborted while sections were in flight", "error", err)
		return s.fail(span, progress, err)
	}
	progress(researchModel.SectionsComplete)

	res := Assemble(query, outline.Value(), sections)
	res.Id = uuid.NewString()
	res.CreatedAt = time.Now().UTC()
	progress(researchModel.ReportAssembled)

	span.SetAttributes(
		attribute.Int("research.sections", len(res.Sections)),
		attribute.Int("research.degraded", len(res.DegradedSections)),
		attribute.Int("research.sources", res.TotalSources),
	)
	log.Info("Research report assembled", "words", res.TotalWordCount, "sources", res.TotalSources, "degraded", len(res.DegradedSections))
	return result.Ok(res)
}

func (s *service) fail(span trace.Span, progress Progress, err error) result.Result[researchModel.DeepResearchResult] {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	progress(researchModel.Failed)
	var re *result.Error
	if errors.As(err, &re) && re == err {
		return result.Err[researchModel.DeepResearchResult](re.Kind, re.Err)
	}
	kind := result.KindOf(err)
	if kind == result.KindNone {
		kind = result.KindCanceled
	}
	return result.Err[researchModel.DeepResearchResult](kind, err)
}

func (s *service) outlineStep(ctx context.Context, query string) result.Result[researchModel.Outline] {
	ctx, span := tracer.Start(ctx, "research.outline")
	defer span.End()

	start := time.Now()
	reply, err := s.llmProvider.Generate(ctx, outlinePrompt(query))
	metrics.CaptureExecutionMetrics("research_outline", time.Since(start))
	if err != nil {
		span.RecordError(err)
		return result.Err[researchModel.Outline](result.KindLLM, err)
	}

	outline, err := ParseOutline(reply)
	if err != nil {
		span.RecordError(err)
		return result.Err[researchModel.Outline](result.KindParse, err)
	}
	return result.Ok(outline)
}

// researchSections runs every stub with at most MaxConcurrentSections in flight.
// The returned slice keeps outline order.
func (s *service) researchSections(ctx context.Context, query string, stubs []researchModel.OutlineSection) ([]researchModel.Section, error) {
	sections := make([]researchModel.Section, len(stubs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.MaxConcurrentSections)

	for i, stub := range stubs {
		g.Go(func() error {
			sec, err := s.researchSection(gctx, query, stub)
			if err != nil {
				return err
			}
			sections[i] = sec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return sections, nil
}

func (s *service) researchSection(ctx context.Context, query string, stub researchModel.OutlineSection) (researchModel.Section, error) {
	ctx, span := tracer.Start(ctx, "research.section", trace.WithAttributes(
		attribute.String("section.id", stub.Id),
		attribute.String("section.title", stub.Title),
	))
	defer span.End()
	log := s.logger.Ctx(ctx).With("sectionId", stub.Id)

	found := s.searchStep(ctx, stub)
	if !found.IsOk() {
		return s.onSectionFailure(span, log, StepSearch, stub, found.Error())
	}

	written := s.synthesisStep(ctx, query, stub, found.Value())
	if !written.IsOk() {
		return s.onSectionFailure(span, log, StepSynthesis, stub, written.Error())
	}

	metrics.CaptureResearchSection("ok")
	return written.Value(), nil
}

func (s *service) onSectionFailure(span trace.Span, log *logger_i.Logger, step Step, stub researchModel.OutlineSection, err error) (researchModel.Section, error) {
	span.RecordError(err)
	action := Decide(step, result.KindOf(err))
	log.Warn("Section step failed", "step", step, "kind", result.KindOf(err), "action", action.String(), "error", err)
	if action == Abort {
		metrics.CaptureResearchSection("aborted")
		return researchModel.Section{}, fmt.Errorf("section %s %s: %w", stub.Id, step, err)
	}
	metrics.CaptureResearchSection("degraded")
	return degradedSection(stub, err), nil
}

func (s *service) searchStep(ctx context.Context, stub researchModel.OutlineSection) result.Result[[]websearch.Result] {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("web_search", time.Since(start)) }()

	results, err := s.searcher.Search(ctx, searchQuery(stub), s.opts.ResultsPerQuery)
	if err == nil && len(results) == 0 {
		err = ErrNoResults
	}
	return result.From(results, err, result.KindSearch)
}

func (s *service) synthesisStep(ctx context.Context, query string, stub researchModel.OutlineSection, results []websearch.Result) result.Result[researchModel.Section] {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("research_synthesis", time.Since(start)) }()

	content, err := s.llmProvider.Generate(ctx, sectionPrompt(query, stub, results))
	if err != nil {
		return result.Err[researchModel.Section](result.KindLLM, err)
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return result.Err[researchModel.Section](result.KindLLM, llm.ErrEmptyCompletion)
	}

	sources := make([]researchModel.Source, len(results))
	for i, r := range results {
		sources[i] = researchModel.Source{Url: r.Url, Title: r.Title, Snippet: r.Snippet}
	}
	content, sources = citedSources(content, sources)

	return result.Ok(researchModel.Section{
		Id:        stub.Id,
		Title:     stub.Title,
		Content:   content,
		Sources:   sources,
		WordCount: len(strings.Fields(content)),
	})
}

func (s *service) Save(ctx context.Context, userId string, res researchModel.DeepResearchResult) error {
	if res.Id == "" {
		return fmt.Errorf("saving research: %w", result.ErrInvalidInput)
	}
	res.UserId = userId
	if err := s.results.SaveResult(ctx, userId, res); err != nil {
		return result.NewError(result.KindStorage, err)
	}
	s.logger.Ctx(ctx).Info("Research saved", "researchId", res.Id)
	return nil
}

func (s *service) Get(ctx context.Context, userId string, id string) (researchModel.DeepResearchResult, error) {
	return s.results.GetResult(ctx, userId, id)
}

func (s *service) List(ctx context.Context, userId string) ([]researchModel.ResultSummary, error) {
	return s.results.ListResults(ctx, userId)
}

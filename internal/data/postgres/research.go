package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/akolanti/ResearchAPI/internal/domain/commonModels"
	"github.com/akolanti/ResearchAPI/internal/domain/researchModel"
	"github.com/lib/pq"
)

// SaveResult writes the result, its sections and each section's sources in one transaction.
// A result is immutable once saved, so saving an existing id again is a no-op.
func (s *Store) SaveResult(ctx context.Context, userId string, r researchModel.DeepResearchResult) error {
	outline, err := json.Marshal(r.Outline)
	if err != nil {
		return fmt.Errorf("marshal outline: %w", err)
	}
	toc, err := json.Marshal(r.TableOfContents)
	if err != nil {
		return fmt.Errorf("marshal toc: %w", err)
	}
	degraded := append([]string{}, r.DegradedSections...)

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := ensureUser(ctx, tx, userId); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `
INSERT INTO research_results (id, user_id, query, title, summary, report, outline, table_of_contents,
  total_word_count, total_sources, degraded_sections, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
ON CONFLICT (id) DO NOTHING`,
			r.Id, userId, r.Query, r.Outline.Title, r.Outline.Summary, r.Report, outline, toc,
			r.TotalWordCount, r.TotalSources, pq.Array(degraded), r.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert research result: %w", err)
		}
		inserted, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("insert research result: %w", err)
		}
		if inserted == 0 {
			return nil
		}

		for pos, sec := range r.Sections {
			_, err = tx.ExecContext(ctx, `
INSERT INTO research_sections (result_id, position, section_id, title, content, word_count, degraded, error)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
				r.Id, pos, sec.Id, sec.Title, sec.Content, sec.WordCount, sec.Degraded, sec.Error)
			if err != nil {
				return fmt.Errorf("insert section %s: %w", sec.Id, err)
			}
			for srcPos, src := range sec.Sources {
				_, err = tx.ExecContext(ctx, `
INSERT INTO research_sources (result_id, section_position, position, url, title, snippet)
VALUES ($1,$2,$3,$4,$5,$6)`,
					r.Id, pos, srcPos, src.Url, src.Title, src.Snippet)
				if err != nil {
					return fmt.Errorf("insert source for %s: %w", sec.Id, err)
				}
			}
		}
		return nil
	})
}

func (s *Store) GetResult(ctx context.Context, userId string, id string) (researchModel.DeepResearchResult, error) {
	var (
		r        researchModel.DeepResearchResult
		outline  []byte
		toc      []byte
		title    string
		summary  string
		degraded pq.StringArray
	)
	err := s.DB.QueryRowContext(ctx, `
SELECT id, user_id, query, title, summary, report, outline, table_of_contents,
  total_word_count, total_sources, degraded_sections, created_at
FROM research_results WHERE id=$1 AND user_id=$2`, id, userId).
		Scan(&r.Id, &r.UserId, &r.Query, &title, &summary, &r.Report, &outline, &toc,
			&r.TotalWordCount, &r.TotalSources, &degraded, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return r, commonModels.ErrNotFound
	} else if err != nil {
		return r, fmt.Errorf("get research result: %w", err)
	}
	if err = json.Unmarshal(outline, &r.Outline); err != nil {
		return r, fmt.Errorf("unmarshal outline: %w", err)
	}
	if err = json.Unmarshal(toc, &r.TableOfContents); err != nil {
		return r, fmt.Errorf("unmarshal toc: %w", err)
	}
	if len(degraded) > 0 {
		r.DegradedSections = []string(degraded)
	}

	if r.Sections, err = s.loadSections(ctx, id); err != nil {
		return r, err
	}
	r.References = researchModel.DedupeSources(r.Sections)
	return r, nil
}

func (s *Store) loadSections(ctx context.Context, resultId string) ([]researchModel.Section, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT section_id, title, content, word_count, degraded, error
FROM research_sections WHERE result_id=$1 ORDER BY position`, resultId)
	if err != nil {
		return nil, fmt.Errorf("load sections: %w", err)
	}
	var sections []researchModel.Section
	for rows.Next() {
		var sec researchModel.Section
		if err := rows.Scan(&sec.Id, &sec.Title, &sec.Content, &sec.WordCount, &sec.Degraded, &sec.Error); err != nil {
			rows.Close()
			return nil, err
		}
		sec.Sources = []researchModel.Source{}
		sections = append(sections, sec)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	srcRows, err := s.DB.QueryContext(ctx, `
SELECT section_position, url, title, snippet
FROM research_sources WHERE result_id=$1 ORDER BY section_position, position`, resultId)
	if err != nil {
		return nil, fmt.Errorf("load sources: %w", err)
	}
	defer srcRows.Close()
	for srcRows.Next() {
		var (
			pos int
			src researchModel.Source
		)
		if err := srcRows.Scan(&pos, &src.Url, &src.Title, &src.Snippet); err != nil {
			return nil, err
		}
		if pos >= 0 && pos < len(sections) {
			sections[pos].Sources = append(sections[pos].Sources, src)
		}
	}
	return sections, srcRows.Err()
}

func (s *Store) ListResults(ctx context.Context, userId string) ([]researchModel.ResultSummary, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT id, query, title, total_word_count, total_sources, created_at
FROM research_results WHERE user_id=$1 ORDER BY created_at DESC`, userId)
	if err != nil {
		return nil, fmt.Errorf("list research results: %w", err)
	}
	defer rows.Close()

	out := []researchModel.ResultSummary{}
	for rows.Next() {
		var rs researchModel.ResultSummary
		if err := rows.Scan(&rs.Id, &rs.Query, &rs.Title, &rs.TotalWordCount, &rs.TotalSources, &rs.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rs)
	}
	return out, rows.Err()
}

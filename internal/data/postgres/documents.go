package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/akolanti/ResearchAPI/internal/domain/commonModels"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

func (s *Store) CreateDocument(ctx context.Context, doc commonModels.Document) error {
	meta, err := marshalMeta(doc.Metadata)
	if err != nil {
		return err
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := ensureUser(ctx, tx, doc.UserId); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
INSERT INTO documents (id, user_id, title, type, source, content, metadata, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			doc.Id, doc.UserId, doc.Title, string(doc.Type), doc.Source, doc.Content, meta, doc.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert document: %w", err)
		}
		return nil
	})
}

func (s *Store) GetDocument(ctx context.Context, userId string, id string) (commonModels.Document, error) {
	var (
		doc  commonModels.Document
		typ  string
		meta []byte
	)
	err := s.DB.QueryRowContext(ctx, `
SELECT id, user_id, title, type, source, content, metadata, created_at
FROM documents WHERE id=$1 AND user_id=$2`, id, userId).
		Scan(&doc.Id, &doc.UserId, &doc.Title, &typ, &doc.Source, &doc.Content, &meta, &doc.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return doc, commonModels.ErrNotFound
	} else if err != nil {
		return doc, fmt.Errorf("get document: %w", err)
	}
	doc.Type = commonModels.DocType(typ)
	doc.Metadata, err = unmarshalMeta(meta)
	return doc, err
}

func (s *Store) UpdateDocumentMetadata(ctx context.Context, userId string, id string, metadata map[string]any) error {
	meta, err := marshalMeta(metadata)
	if err != nil {
		return err
	}
	res, err := s.DB.ExecContext(ctx, `UPDATE documents SET metadata=$1 WHERE id=$2 AND user_id=$3`, meta, id, userId)
	if err != nil {
		return fmt.Errorf("update document metadata: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return commonModels.ErrNotFound
	}
	return nil
}

func (s *Store) SaveChunks(ctx context.Context, documentId string, chunks []commonModels.DocChunk) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM document_chunks WHERE document_id=$1`, documentId); err != nil {
			return fmt.Errorf("delete chunks: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx, `
INSERT INTO document_chunks (id, document_id, chunk_index, content, overlap, embedding, metadata)
VALUES ($1,$2,$3,$4,$5,$6,$7)`)
		if err != nil {
			return fmt.Errorf("prepare chunk insert: %w", err)
		}
		defer stmt.Close()

		for _, c := range chunks {
			if c.Id == "" {
				c.Id = uuid.NewString()
			}
			meta, err := marshalMeta(c.Metadata)
			if err != nil {
				return err
			}
			if _, err = stmt.ExecContext(ctx, c.Id, documentId, c.ChunkIndex, c.Content, c.Overlap, vectorArg(c.Embedding), meta); err != nil {
				return fmt.Errorf("insert chunk %d: %w", c.ChunkIndex, err)
			}
		}
		return nil
	})
}

func (s *Store) UpdateChunkEmbeddings(ctx context.Context, documentId string, embeddings map[int][]float32) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for idx, emb := range embeddings {
			_, err := tx.ExecContext(ctx,
				`UPDATE document_chunks SET embedding=$1 WHERE document_id=$2 AND chunk_index=$3`,
				vectorArg(emb), documentId, idx)
			if err != nil {
				return fmt.Errorf("update embedding %d: %w", idx, err)
			}
		}
		return nil
	})
}

func (s *Store) GetChunks(ctx context.Context, documentId string) ([]commonModels.DocChunk, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT id, document_id, chunk_index, content, overlap, embedding, metadata
FROM document_chunks WHERE document_id=$1 ORDER BY chunk_index`, documentId)
	if err != nil {
		return nil, fmt.Errorf("get chunks: %w", err)
	}
	defer rows.Close()

	var out []commonModels.DocChunk
	for rows.Next() {
		var (
			c    commonModels.DocChunk
			vec  *pgvector.Vector
			meta []byte
		)
		if err := rows.Scan(&c.Id, &c.DocumentId, &c.ChunkIndex, &c.Content, &c.Overlap, &vec, &meta); err != nil {
			return nil, err
		}
		if vec != nil {
			c.Embedding = vec.Slice()
		}
		if c.Metadata, err = unmarshalMeta(meta); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) SearchableChunks(ctx context.Context, filter commonModels.ChunkFilter) ([]commonModels.ChunkWithDoc, error) {
	docIds := append([]string{}, filter.DocumentIds...)
	types := make([]string, 0, len(filter.Types))
	for _, t := range filter.Types {
		types = append(types, string(t))
	}

	rows, err := s.DB.QueryContext(ctx, `
SELECT c.id, c.document_id, c.chunk_index, c.content, c.overlap, c.embedding, c.metadata,
       d.title, d.type, d.source
FROM document_chunks c
JOIN documents d ON d.id = c.document_id
WHERE d.user_id = $1
  AND c.embedding IS NOT NULL
  AND (cardinality($2::text[]) = 0 OR c.document_id = ANY($2))
  AND (cardinality($3::text[]) = 0 OR d.type = ANY($3))
ORDER BY d.created_at, c.document_id, c.chunk_index`,
		filter.UserId, pq.Array(docIds), pq.Array(types))
	if err != nil {
		return nil, fmt.Errorf("searchable chunks: %w", err)
	}
	defer rows.Close()

	var out []commonModels.ChunkWithDoc
	for rows.Next() {
		var (
			c    commonModels.ChunkWithDoc
			vec  pgvector.Vector
			meta []byte
			typ  string
		)
		if err := rows.Scan(&c.Id, &c.DocumentId, &c.ChunkIndex, &c.Content, &c.Overlap, &vec, &meta,
			&c.DocTitle, &typ, &c.DocSource); err != nil {
			return nil, err
		}
		c.Embedding = vec.Slice()
		c.DocType = commonModels.DocType(typ)
		if c.Metadata, err = unmarshalMeta(meta); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) Summary(ctx context.Context, userId string) (commonModels.UserSummary, error) {
	sum := commonModels.UserSummary{UserId: userId, GeneratedAt: time.Now().UTC()}
	err := s.DB.QueryRowContext(ctx, `
SELECT
  (SELECT COUNT(*) FROM documents WHERE user_id=$1),
  (SELECT COUNT(*) FROM document_chunks c JOIN documents d ON d.id=c.document_id WHERE d.user_id=$1),
  (SELECT COUNT(*) FROM document_chunks c JOIN documents d ON d.id=c.document_id WHERE d.user_id=$1 AND c.embedding IS NOT NULL),
  (SELECT COUNT(*) FROM research_results WHERE user_id=$1)`, userId).
		Scan(&sum.Documents, &sum.Chunks, &sum.EmbeddedChunks, &sum.SavedResearch)
	if err != nil {
		return sum, fmt.Errorf("summary: %w", err)
	}
	return sum, nil
}

func vectorArg(v []float32) any {
	if len(v) == 0 {
		return nil
	}
	return pgvector.NewVector(v)
}

func marshalMeta(m map[string]any) ([]byte, error) {
	if m == nil {
		m = map[string]any{}
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}
	return b, nil
}

func unmarshalMeta(b []byte) (map[string]any, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}
	if len(m) == 0 {
		return nil, nil
	}
	return m, nil
}

package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/akolanti/ResearchAPI/pkg/logger_i"
	_ "github.com/lib/pq"
)

// Store persists documents, chunks and saved research in Postgres. Embeddings live in
// a pgvector column.
type Store struct {
	DB     *sql.DB
	logger *logger_i.Logger
}

func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err = db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return New(db), nil
}

func New(db *sql.DB) *Store {
	return &Store{
		DB:     db,
		logger: logger_i.NewLogger("Postgres"),
	}
}

func (s *Store) Close() error {
	return s.DB.Close()
}

// withTx commits when fn succeeds and rolls back otherwise.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()
	return fn(tx)
}

func ensureUser(ctx context.Context, tx *sql.Tx, userId string) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO users (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`, userId)
	if err != nil {
		return fmt.Errorf("ensure user: %w", err)
	}
	return nil
}

package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
)

// EmbeddingRepository stores one reference embedding per student in a pgvector column.
type EmbeddingRepository struct {
	pool PgxPool
}

func NewEmbeddingRepository(pool PgxPool) *EmbeddingRepository {
	return &EmbeddingRepository{pool: pool}
}

// Load returns every entry in enrollment order.
func (r *EmbeddingRepository) Load(ctx context.Context) ([]domain.EmbeddingEntry, error) {
	query := `
		SELECT student_id, name, embedding, created_at
		FROM embeddings
		ORDER BY seq
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("load embeddings: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.EmbeddingEntry, 0)
	for rows.Next() {
		var e domain.EmbeddingEntry
		var vec pgvector.Vector
		if err := rows.Scan(&e.StudentID, &e.Name, &vec, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan embedding: %w", err)
		}
		e.Embedding = fromVector(vec)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate embeddings: %w", err)
	}
	return entries, nil
}

func (r *EmbeddingRepository) Get(ctx context.Context, studentID int64) (*domain.EmbeddingEntry, error) {
	query := `
		SELECT student_id, name, embedding, created_at
		FROM embeddings
		WHERE student_id = $1
	`

	var e domain.EmbeddingEntry
	var vec pgvector.Vector
	err := r.pool.QueryRow(ctx, query, studentID).Scan(&e.StudentID, &e.Name, &vec, &e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrStudentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get embedding: %w", err)
	}
	e.Embedding = fromVector(vec)
	return &e, nil
}

// Save appends a new entry. It never overwrites: an existing student_id
// yields domain.ErrEmbeddingExists.
func (r *EmbeddingRepository) Save(ctx context.Context, e *domain.EmbeddingEntry) error {
	var dim int
	err := r.pool.QueryRow(ctx, `SELECT vector_dims(embedding) FROM embeddings LIMIT 1`).Scan(&dim)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
	case err != nil:
		return fmt.Errorf("check embedding dimension: %w", err)
	case dim != len(e.Embedding):
		return domain.ErrDimensionMismatch.WithError(fmt.Errorf("got %d, store has %d", len(e.Embedding), dim))
	}

	query := `
		INSERT INTO embeddings (student_id, name, embedding, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING created_at
	`

	err = r.pool.QueryRow(ctx, query, e.StudentID, e.Name, toVector(e.Embedding)).Scan(&e.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrEmbeddingExists
		}
		return fmt.Errorf("save embedding: %w", err)
	}
	return nil
}

func (r *EmbeddingRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM embeddings`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count embeddings: %w", err)
	}
	return n, nil
}

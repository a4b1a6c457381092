package flatfile

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
)

const EmbeddingsFile = "embeddings.csv"

var embeddingHeader = []string{"student_id", "name", "embedding", "created_at"}

// EmbeddingStore maps student_id to a reference embedding. Entries keep
// enrollment order and are never overwritten.
type EmbeddingStore struct {
	mu      sync.RWMutex
	t       table
	entries []domain.EmbeddingEntry
	byID    map[int64]int
}

func OpenEmbeddingStore(dir string) (*EmbeddingStore, error) {
	s := &EmbeddingStore{
		t:    table{path: filepath.Join(dir, EmbeddingsFile), header: embeddingHeader},
		byID: make(map[int64]int),
	}

	rows, err := s.t.read()
	if err != nil {
		return nil, err
	}
	for i, r := range rows {
		e, err := parseEmbedding(r)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", EmbeddingsFile, i+2, err)
		}
		if len(s.entries) > 0 && len(e.Embedding) != len(s.entries[0].Embedding) {
			return nil, fmt.Errorf("%s row %d: %w", EmbeddingsFile, i+2, domain.ErrDimensionMismatch)
		}
		if _, dup := s.byID[e.StudentID]; dup {
			return nil, fmt.Errorf("%s row %d: student %d: %w", EmbeddingsFile, i+2, e.StudentID, domain.ErrEmbeddingExists)
		}
		s.byID[e.StudentID] = len(s.entries)
		s.entries = append(s.entries, e)
	}
	return s, nil
}

// Load returns a snapshot of every entry in enrollment order.
func (s *EmbeddingStore) Load(ctx context.Context) ([]domain.EmbeddingEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.EmbeddingEntry, len(s.entries))
	copy(out, s.entries)
	return out, nil
}

func (s *EmbeddingStore) Get(ctx context.Context, studentID int64) (*domain.EmbeddingEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.byID[studentID]
	if !ok {
		return nil, domain.ErrStudentNotFound
	}
	e := s.entries[i]
	return &e, nil
}

// Save appends e and rewrites the file. The in-memory index only changes
// once the file is safely replaced.
func (s *EmbeddingStore) Save(ctx context.Context, e *domain.EmbeddingEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[e.StudentID]; ok {
		return domain.ErrEmbeddingExists
	}
	if len(s.entries) > 0 && len(e.Embedding) != len(s.entries[0].Embedding) {
		return domain.ErrDimensionMismatch.WithError(
			fmt.Errorf("got %d, store has %d", len(e.Embedding), len(s.entries[0].Embedding)))
	}

	rec := *e
	rec.Embedding = append([]float64(nil), e.Embedding...)
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	next := append(s.entries[:len(s.entries):len(s.entries)], rec)
	if err := s.t.write(embeddingRecords(next)); err != nil {
		return fmt.Errorf("save embedding: %w", err)
	}

	s.byID[rec.StudentID] = len(s.entries)
	s.entries = next
	e.CreatedAt = rec.CreatedAt
	return nil
}

func (s *EmbeddingStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

func parseEmbedding(r row) (domain.EmbeddingEntry, error) {
	id, err := strconv.ParseInt(r["student_id"], 10, 64)
	if err != nil {
		return domain.EmbeddingEntry{}, fmt.Errorf("student_id: %w", err)
	}

	vec, err := parseVector(r["embedding"])
	if err != nil {
		return domain.EmbeddingEntry{}, fmt.Errorf("embedding: %w", err)
	}

	e := domain.EmbeddingEntry{StudentID: id, Name: r["name"], Embedding: vec}
	if v := r["created_at"]; v != "" {
		if e.CreatedAt, err = time.Parse(time.RFC3339, v); err != nil {
			return domain.EmbeddingEntry{}, fmt.Errorf("created_at: %w", err)
		}
	}
	return e, nil
}

// parseVector reads the comma-delimited decimal encoding of a vector.
func parseVector(s string) ([]float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty vector")
	}

	parts := strings.Split(s, ",")
	vec := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("component %d: %w", i, err)
		}
		vec[i] = v
	}
	return vec, nil
}

// formatVector uses the shortest representation that parses back to the same float64.
func formatVector(v []float64) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = strconv.FormatFloat(x, 'g', -1, 64)
	}
	return strings.Join(parts, ",")
}

func embeddingRecords(entries []domain.EmbeddingEntry) [][]string {
	records := make([][]string, 0, len(entries))
	for _, e := range entries {
		records = append(records, []string{
			strconv.FormatInt(e.StudentID, 10),
			e.Name,
			formatVector(e.Embedding),
			formatTime(e.CreatedAt),
		})
	}
	return records
}

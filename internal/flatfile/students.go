package flatfile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
)

const (
	StudentsFile = "students.csv"
	// LegacyStudentsFile is read when StudentsFile does not exist yet. The
	// first write moves the table to StudentsFile.
	LegacyStudentsFile = "enrollment.csv"
)

var studentHeader = []string{"student_id", "name", "course", "section", "room", "created_at"}

// StudentStore is the registered-students table.
type StudentStore struct {
	mu       sync.RWMutex
	t        table
	students []domain.Student
	byID     map[int64]int
}

func OpenStudentStore(dir string) (*StudentStore, error) {
	s := &StudentStore{
		t:    table{path: filepath.Join(dir, StudentsFile), header: studentHeader},
		byID: make(map[int64]int),
	}

	source := s.source(dir)
	rows, err := source.read()
	if err != nil {
		return nil, err
	}
	for i, r := range rows {
		st, err := parseStudent(r)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", filepath.Base(source.path), i+2, err)
		}
		if _, dup := s.byID[st.ID]; dup {
			continue
		}
		s.byID[st.ID] = len(s.students)
		s.students = append(s.students, st)
	}
	return s, nil
}

func (s *StudentStore) source(dir string) table {
	if _, err := os.Stat(s.t.path); !errors.Is(err, fs.ErrNotExist) {
		return s.t
	}
	legacy := table{path: filepath.Join(dir, LegacyStudentsFile), header: studentHeader}
	if _, err := os.Stat(legacy.path); err != nil {
		return s.t
	}
	return legacy
}

// Upsert adds the student unless the id is already registered.
func (s *StudentStore) Upsert(ctx context.Context, st *domain.Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[st.ID]; ok {
		return nil
	}

	rec := *st
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	next := append(s.students[:len(s.students):len(s.students)], rec)
	if err := s.t.write(studentRecords(next)); err != nil {
		return fmt.Errorf("upsert student: %w", err)
	}

	s.byID[rec.ID] = len(s.students)
	s.students = next
	st.CreatedAt = rec.CreatedAt
	return nil
}

// Delete removes the student. Deleting an unknown id is a no-op.
func (s *StudentStore) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[id]; !ok {
		return nil
	}

	next := make([]domain.Student, 0, len(s.students)-1)
	for _, st := range s.students {
		if st.ID != id {
			next = append(next, st)
		}
	}
	if err := s.t.write(studentRecords(next)); err != nil {
		return fmt.Errorf("delete student: %w", err)
	}

	s.students = next
	s.byID = make(map[int64]int, len(next))
	for i, st := range next {
		s.byID[st.ID] = i
	}
	return nil
}

func (s *StudentStore) GetByID(ctx context.Context, id int64) (*domain.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.byID[id]
	if !ok {
		return nil, domain.ErrStudentNotFound
	}
	st := s.students[i]
	return &st, nil
}

func (s *StudentStore) List(ctx context.Context) ([]domain.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Student, len(s.students))
	copy(out, s.students)
	return out, nil
}

func (s *StudentStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.students), nil
}

func parseStudent(r row) (domain.Student, error) {
	id, err := strconv.ParseInt(r["student_id"], 10, 64)
	if err != nil {
		return domain.Student{}, fmt.Errorf("student_id: %w", err)
	}

	st := domain.Student{
		ID:      id,
		Name:    r["name"],
		Course:  r["course"],
		Section: r["section"],
		Room:    r["room"],
	}
	if v := r["created_at"]; v != "" {
		if st.CreatedAt, err = time.Parse(time.RFC3339, v); err != nil {
			return domain.Student{}, fmt.Errorf("created_at: %w", err)
		}
	}
	return st, nil
}

func studentRecords(students []domain.Student) [][]string {
	records := make([][]string, 0, len(students))
	for _, st := range students {
		records = append(records, []string{
			strconv.FormatInt(st.ID, 10),
			st.Name,
			st.Course,
			st.Section,
			st.Room,
			formatTime(st.CreatedAt),
		})
	}
	return records
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

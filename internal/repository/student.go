package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
)

type StudentRepository struct {
	pool PgxPool
}

func NewStudentRepository(pool PgxPool) *StudentRepository {
	return &StudentRepository{pool: pool}
}

// Upsert inserts the student unless one with the same id already exists.
// Existing records are never modified.
func (r *StudentRepository) Upsert(ctx context.Context, s *domain.Student) error {
	query := `
		INSERT INTO students (student_id, name, course, section, room, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (student_id) DO NOTHING
	`

	if _, err := r.pool.Exec(ctx, query, s.ID, s.Name, s.Course, s.Section, s.Room); err != nil {
		return fmt.Errorf("upsert student: %w", err)
	}
	return nil
}

func (r *StudentRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM students WHERE student_id = $1`, id); err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	return nil
}

func (r *StudentRepository) GetByID(ctx context.Context, id int64) (*domain.Student, error) {
	query := `
		SELECT student_id, name, course, section, room, created_at
		FROM students
		WHERE student_id = $1
	`

	var s domain.Student
	err := r.pool.QueryRow(ctx, query, id).Scan(&s.ID, &s.Name, &s.Course, &s.Section, &s.Room, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrStudentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get student: %w", err)
	}
	return &s, nil
}

func (r *StudentRepository) List(ctx context.Context) ([]domain.Student, error) {
	query := `
		SELECT student_id, name, course, section, room, created_at
		FROM students
		ORDER BY created_at, student_id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	defer rows.Close()

	students := make([]domain.Student, 0)
	for rows.Next() {
		var s domain.Student
		if err := rows.Scan(&s.ID, &s.Name, &s.Course, &s.Section, &s.Room, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		students = append(students, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate students: %w", err)
	}
	return students, nil
}

func (r *StudentRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM students`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count students: %w", err)
	}
	return n, nil
}

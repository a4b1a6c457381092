package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
)

// StudentRepository Tests

func TestStudentRepository_Upsert(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := &domain.Student{ID: 101, Name: "Ana", Course: "BSIT", Section: "A", Room: "301"}
	mock.ExpectExec(`INSERT INTO students .* ON CONFLICT \(student_id\) DO NOTHING`).
		WithArgs(int64(101), "Ana", "BSIT", "A", "301").
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	require.NoError(t, NewStudentRepository(mock).Upsert(context.Background(), s))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepository_Delete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`DELETE FROM students WHERE student_id = \$1`).
		WithArgs(int64(101)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(`DELETE FROM students`).
		WithArgs(int64(102)).
		WillReturnError(errors.New("connection reset"))

	repo := NewStudentRepository(mock)
	require.NoError(t, repo.Delete(context.Background(), 101))
	assert.Error(t, repo.Delete(context.Background(), 102))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepository_GetByID(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name      string
		mockSetup func(mock pgxmock.PgxPoolIface)
		want      *domain.Student
		wantErr   error
	}{
		{
			name: "found",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				rows := pgxmock.NewRows([]string{"student_id", "name", "course", "section", "room", "created_at"}).
					AddRow(int64(7), "Bruno", "BSCS", "B", "12", now)
				mock.ExpectQuery(`SELECT student_id, name, course, section, room, created_at FROM students WHERE student_id = \$1`).
					WithArgs(int64(7)).
					WillReturnRows(rows)
			},
			want: &domain.Student{ID: 7, Name: "Bruno", Course: "BSCS", Section: "B", Room: "12", CreatedAt: now},
		},
		{
			name: "not found",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`FROM students WHERE student_id = \$1`).
					WithArgs(int64(7)).
					WillReturnError(pgx.ErrNoRows)
			},
			wantErr: domain.ErrStudentNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			tt.mockSetup(mock)

			got, err := NewStudentRepository(mock).GetByID(context.Background(), 7)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestStudentRepository_ListAndCount(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now()
	rows := pgxmock.NewRows([]string{"student_id", "name", "course", "section", "room", "created_at"}).
		AddRow(int64(1), "Ana", "", "", "", now).
		AddRow(int64(2), "Bruno", "", "", "", now)
	mock.ExpectQuery(`SELECT .* FROM students ORDER BY created_at, student_id`).WillReturnRows(rows)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM students`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(2))

	repo := NewStudentRepository(mock)
	list, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Bruno", list[1].Name)

	n, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// EmbeddingRepository Tests

func TestEmbeddingRepository_Load(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now()
	rows := pgxmock.NewRows([]string{"student_id", "name", "embedding", "created_at"}).
		AddRow(int64(1), "Ana", pgvector.NewVector([]float32{0.6, 0.8}), now).
		AddRow(int64(2), "Bruno", pgvector.NewVector([]float32{1, 0}), now)
	mock.ExpectQuery(`SELECT student_id, name, embedding, created_at FROM embeddings ORDER BY seq`).
		WillReturnRows(rows)

	entries, err := NewEmbeddingRepository(mock).Load(context.Background())

	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(1), entries[0].StudentID)
	assert.InDeltaSlice(t, []float64{0.6, 0.8}, entries[0].Embedding, 1e-6)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmbeddingRepository_Load_Empty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`FROM embeddings ORDER BY seq`).
		WillReturnRows(pgxmock.NewRows([]string{"student_id", "name", "embedding", "created_at"}))

	entries, err := NewEmbeddingRepository(mock).Load(context.Background())

	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestEmbeddingRepository_Save(t *testing.T) {
	now := time.Now()
	entry := func() *domain.EmbeddingEntry {
		return &domain.EmbeddingEntry{StudentID: 5, Name: "Caio", Embedding: []float64{0.6, 0.8}}
	}

	tests := []struct {
		name      string
		mockSetup func(mock pgxmock.PgxPoolIface)
		wantErr   error
	}{
		{
			name: "first entry",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`SELECT vector_dims\(embedding\) FROM embeddings LIMIT 1`).
					WillReturnError(pgx.ErrNoRows)
				mock.ExpectQuery(`INSERT INTO embeddings`).
					WithArgs(int64(5), "Caio", pgxmock.AnyArg()).
					WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(now))
			},
		},
		{
			name: "matching dimension",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`SELECT vector_dims`).
					WillReturnRows(pgxmock.NewRows([]string{"vector_dims"}).AddRow(2))
				mock.ExpectQuery(`INSERT INTO embeddings`).
					WithArgs(int64(5), "Caio", pgxmock.AnyArg()).
					WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(now))
			},
		},
		{
			name: "dimension mismatch",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`SELECT vector_dims`).
					WillReturnRows(pgxmock.NewRows([]string{"vector_dims"}).AddRow(512))
			},
			wantErr: domain.ErrDimensionMismatch,
		},
		{
			name: "existing student",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`SELECT vector_dims`).
					WillReturnRows(pgxmock.NewRows([]string{"vector_dims"}).AddRow(2))
				mock.ExpectQuery(`INSERT INTO embeddings`).
					WithArgs(int64(5), "Caio", pgxmock.AnyArg()).
					WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"})
			},
			wantErr: domain.ErrEmbeddingExists,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			tt.mockSetup(mock)

			e := entry()
			err = NewEmbeddingRepository(mock).Save(context.Background(), e)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, now, e.CreatedAt)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

// AttendanceRepository Tests

func TestAttendanceRepository_Append(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	at := time.Date(2024, 3, 5, 8, 0, 0, 0, time.Local)
	ev := domain.NewAttendanceEvent(9, "Duda", at)

	mock.ExpectExec(`INSERT INTO attendance_events \(id, student_id, name, login_at\)`).
		WithArgs(ev.ID, int64(9), "Duda", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, NewAttendanceRepository(mock).Append(context.Background(), &ev))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepository_CloseLatestOpen(t *testing.T) {
	id := uuid.New()
	loginAt := time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC)
	logoutAt := time.Date(2024, 3, 5, 12, 30, 15, 0, time.UTC)

	tests := []struct {
		name      string
		mockSetup func(mock pgxmock.PgxPoolIface)
		wantErr   error
	}{
		{
			name: "closes open event",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				rows := pgxmock.NewRows([]string{"id", "student_id", "name", "login_at", "logout_at"}).
					AddRow(id, int64(9), "Duda", loginAt, &logoutAt)
				mock.ExpectQuery(`UPDATE attendance_events SET logout_at = \$2 WHERE id = \( SELECT id FROM attendance_events WHERE student_id = \$1 AND logout_at IS NULL ORDER BY login_at DESC, seq DESC`).
					WithArgs(int64(9), pgxmock.AnyArg()).
					WillReturnRows(rows)
			},
		},
		{
			name: "no open event",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`UPDATE attendance_events`).
					WithArgs(int64(9), pgxmock.AnyArg()).
					WillReturnError(pgx.ErrNoRows)
			},
			wantErr: domain.ErrNoActiveSession,
		},
		{
			name: "database error",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`UPDATE attendance_events`).
					WithArgs(int64(9), pgxmock.AnyArg()).
					WillReturnError(errors.New("connection reset"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			tt.mockSetup(mock)

			ev, err := NewAttendanceRepository(mock).CloseLatestOpen(context.Background(), 9, logoutAt)

			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.name == "database error":
				require.Error(t, err)
				assert.Contains(t, err.Error(), "close attendance: connection reset")
			default:
				require.NoError(t, err)
				assert.Equal(t, id, ev.ID)
				assert.Equal(t, "2024-03-05", ev.LoginDate)
				assert.Equal(t, "08:00:00", ev.LoginTime)
				assert.Equal(t, "12:30:15", ev.LogoutTime)
				assert.False(t, ev.IsOpen())
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestAttendanceRepository_List(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	loginAt := time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC)
	rows := pgxmock.NewRows([]string{"id", "student_id", "name", "login_at", "logout_at"}).
		AddRow(uuid.New(), int64(9), "Duda", loginAt, (*time.Time)(nil))

	mock.ExpectQuery(`FROM attendance_events WHERE login_at >= \$1 AND login_at < \$2 AND student_id = \$3 ORDER BY login_at, seq`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), int64(9)).
		WillReturnRows(rows)

	events, err := NewAttendanceRepository(mock).List(context.Background(),
		domain.AttendanceFilter{Date: "2024-03-05", StudentID: 9})

	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.True(t, events[0].IsOpen())
	assert.Equal(t, "08:00:00", events[0].LoginTime)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepository_List_BadDate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewAttendanceRepository(mock).List(context.Background(), domain.AttendanceFilter{Date: "05/03/2024"})

	assert.ErrorIs(t, err, domain.ErrValidationFailed)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.True(t, isUniqueViolation(errors.New("ERROR: duplicate key value (SQLSTATE 23505)")))
	assert.False(t, isUniqueViolation(nil))
}

package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
)

const uniqueViolation = "23505"

// isUniqueViolation checks if the error is a unique constraint violation
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}

	errMsg := strings.ToLower(err.Error())
	return strings.Contains(errMsg, uniqueViolation) ||
		strings.Contains(errMsg, "duplicate key")
}

func toVector(v []float64) pgvector.Vector {
	floats := make([]float32, len(v))
	for i, x := range v {
		floats[i] = float32(x)
	}
	return pgvector.NewVector(floats)
}

func fromVector(v pgvector.Vector) []float64 {
	s := v.Slice()
	out := make([]float64, len(s))
	for i, x := range s {
		out[i] = float64(x)
	}
	return out
}

// eventFromTimes renders stored timestamps into the wall-clock strings of an event.
func eventFromTimes(ev *domain.AttendanceEvent, loginAt time.Time, logoutAt *time.Time) {
	ev.LoginDate = loginAt.Format(domain.DateLayout)
	ev.LoginTime = loginAt.Format(domain.TimeLayout)
	if logoutAt != nil {
		ev.LogoutDate = logoutAt.Format(domain.DateLayout)
		ev.LogoutTime = logoutAt.Format(domain.TimeLayout)
	}
}

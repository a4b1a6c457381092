package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"
)

// AttendanceEvent representa uma entrada (login) e, opcionalmente, a saída (logout).
type AttendanceEvent struct {
	ID         uuid.UUID `json:"id"`
	StudentID  int64     `json:"student_id"`
	Name       string    `json:"name"`
	LoginDate  string    `json:"login_date"`
	LoginTime  string    `json:"login_time"`
	LogoutDate string    `json:"logout_date"`
	LogoutTime string    `json:"logout_time"`
}

// NewAttendanceEvent opens an event stamped with the local date and time of at.
func NewAttendanceEvent(studentID int64, name string, at time.Time) AttendanceEvent {
	return AttendanceEvent{
		ID:        uuid.New(),
		StudentID: studentID,
		Name:      name,
		LoginDate: at.Format(DateLayout),
		LoginTime: at.Format(TimeLayout),
	}
}

// IsOpen reports whether the event still awaits a logout.
func (e AttendanceEvent) IsOpen() bool {
	return e.LogoutDate == ""
}

// Close stamps the logout fields.
func (e *AttendanceEvent) Close(at time.Time) {
	e.LogoutDate = at.Format(DateLayout)
	e.LogoutTime = at.Format(TimeLayout)
}

// LoginAt parses the login stamp in the given location.
func (e AttendanceEvent) LoginAt(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout+" "+TimeLayout, e.LoginDate+" "+e.LoginTime, loc)
}

// AttendanceFilter narrows attendance listings. Zero values match everything.
type AttendanceFilter struct {
	Date      string
	StudentID int64
}

func (f AttendanceFilter) Match(e AttendanceEvent) bool {
	if f.Date != "" && e.LoginDate != f.Date {
		return false
	}
	if f.StudentID != 0 && e.StudentID != f.StudentID {
		return false
	}
	return true
}

package ws

import (
	"time"
)

type EventType string

const (
	EventStudentEnrolled  EventType = "student.enrolled"
	EventAttendanceLogin  EventType = "attendance.login"
	EventAttendanceLogout EventType = "attendance.logout"
)

type Event struct {
	Type      EventType   `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlogLogger_Log(t *testing.T) {
	tests := []struct {
		name          string
		event         Event
		wantEventType string
		wantHasError  bool
		wantStudentID bool
	}{
		{
			name: "student enrolled",
			event: Event{
				EventType: EventStudentEnrolled,
				StudentID: 101,
				Name:      "Ana",
				Provider:  "deepface",
				Success:   true,
				Metadata:  map[string]string{"images_used": "3"},
			},
			wantEventType: string(EventStudentEnrolled),
			wantStudentID: true,
		},
		{
			name: "duplicate enrollment",
			event: Event{
				EventType: EventEnrollDuplicate,
				StudentID: 102,
				Success:   false,
				Error:     "Already enrolled as Ana",
				Distance:  Distance(0.31),
			},
			wantEventType: string(EventEnrollDuplicate),
			wantHasError:  true,
			wantStudentID: true,
		},
		{
			name: "unknown face at login",
			event: Event{
				EventType: EventLoginUnknown,
				Success:   false,
				Distance:  Distance(0.92),
			},
			wantEventType: string(EventLoginUnknown),
		},
		{
			name: "login with IP and user agent",
			event: Event{
				EventType: EventAttendanceLogin,
				StudentID: 7,
				Success:   true,
				IPAddress: "192.168.1.1",
				UserAgent: "Mozilla/5.0",
			},
			wantEventType: string(EventAttendanceLogin),
			wantStudentID: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, nil))

			err := NewSlogLogger(logger).Log(context.Background(), tt.event)
			require.NoError(t, err)

			output := buf.String()
			assert.Contains(t, output, tt.wantEventType)
			assert.Contains(t, output, "audit_event")
			assert.Contains(t, output, `"component":"audit"`)

			if tt.wantHasError {
				assert.Contains(t, output, tt.event.Error)
			}
			if tt.wantStudentID {
				assert.Contains(t, output, `"student_id":`)
			}
		})
	}
}

func TestSlogLogger_Log_GeneratesIDAndTimestamp(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	err := NewSlogLogger(logger).Log(context.Background(), Event{
		EventType: EventAttendanceLogout,
		StudentID: 1,
		Success:   true,
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.NotEmpty(t, lines)

	var logEntry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &logEntry))

	eventID, ok := logEntry["event_id"].(string)
	require.True(t, ok)
	_, err = uuid.Parse(eventID)
	assert.NoError(t, err)

	var data Event
	require.NoError(t, json.Unmarshal([]byte(logEntry["event_data"].(string)), &data))
	assert.False(t, data.Timestamp.IsZero())
}

func TestSlogLogger_Log_UsesProvidedID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	expectedID := uuid.New()
	err := NewSlogLogger(logger).Log(context.Background(), Event{
		ID:        expectedID,
		Timestamp: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
		EventType: EventStudentEnrolled,
		Success:   true,
	})
	require.NoError(t, err)

	assert.Contains(t, buf.String(), expectedID.String())
	assert.Contains(t, buf.String(), "2024-01-15T10:30:00Z")
}

func TestNoOpLogger_Log(t *testing.T) {
	logger := &NoOpLogger{}

	for i := 0; i < 100; i++ {
		assert.NoError(t, logger.Log(context.Background(), Event{EventType: EventAttendanceLogin}))
	}
}

func TestLoggerInterface_Compliance(t *testing.T) {
	var _ Logger = (*SlogLogger)(nil)
	var _ Logger = (*NoOpLogger)(nil)
}

func TestEvent_JSONOmitsEmptyFields(t *testing.T) {
	data, err := json.Marshal(Event{EventType: EventAttendanceLogin, Success: true})
	require.NoError(t, err)

	jsonStr := string(data)
	assert.NotContains(t, jsonStr, "student_id")
	assert.NotContains(t, jsonStr, "distance")
	assert.NotContains(t, jsonStr, "error")
	assert.NotContains(t, jsonStr, "ip_address")
	assert.NotContains(t, jsonStr, "user_agent")
}

func TestEvent_DistanceZeroIsKept(t *testing.T) {
	data, err := json.Marshal(Event{EventType: EventAttendanceLogin, Distance: Distance(0)})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"distance":0`)
}

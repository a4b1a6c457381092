package flatfile

import (
	"context"
	"fmt"
	"os"
)

const dirPerm = 0o755

// DB bundles the three tables kept under one data directory.
type DB struct {
	dir        string
	Students   *StudentStore
	Embeddings *EmbeddingStore
	Attendance *AttendanceLog
}

// Open creates dir if needed and loads every table into memory.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	students, err := OpenStudentStore(dir)
	if err != nil {
		return nil, fmt.Errorf("open students: %w", err)
	}
	embeddings, err := OpenEmbeddingStore(dir)
	if err != nil {
		return nil, fmt.Errorf("open embeddings: %w", err)
	}
	attendance, err := OpenAttendanceLog(dir)
	if err != nil {
		return nil, fmt.Errorf("open attendance: %w", err)
	}

	return &DB{dir: dir, Students: students, Embeddings: embeddings, Attendance: attendance}, nil
}

// Ping reports whether the data directory is still reachable.
func (db *DB) Ping(ctx context.Context) error {
	info, err := os.Stat(db.dir)
	if err != nil {
		return fmt.Errorf("data dir unavailable: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("data dir %s is not a directory", db.dir)
	}
	return nil
}

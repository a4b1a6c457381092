// Package flatfile keeps students, embeddings and attendance in CSV files.
// Each store loads its file once, serves reads from memory and rewrites the
// whole file atomically on every write.
package flatfile

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/google/renameio"
)

const filePerm = 0o644

// table is one CSV file with a fixed header. Rows are read by column name so
// files written with a different column order, or missing optional columns,
// still load.
type table struct {
	path   string
	header []string
}

type row map[string]string

func (t table) read() ([]row, error) {
	f, err := os.Open(t.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", t.path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", t.path, err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	header := records[0]
	rows := make([]row, 0, len(records)-1)
	for _, rec := range records[1:] {
		if len(rec) == 1 && rec[0] == "" {
			continue
		}
		m := make(row, len(header))
		for i, col := range header {
			if i < len(rec) {
				m[col] = rec[i]
			}
		}
		rows = append(rows, m)
	}
	return rows, nil
}

// write replaces the file with header plus records. Readers never observe a
// partially written file.
func (t table) write(records [][]string) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(t.header); err != nil {
		return fmt.Errorf("encode %s: %w", t.path, err)
	}
	if err := w.WriteAll(records); err != nil {
		return fmt.Errorf("encode %s: %w", t.path, err)
	}

	if err := renameio.WriteFile(t.path, buf.Bytes(), filePerm); err != nil {
		return fmt.Errorf("write %s: %w", t.path, err)
	}
	return nil
}

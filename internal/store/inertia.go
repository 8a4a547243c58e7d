package store

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/couchcryptid/seaweed-cluster/internal/domain"
)

// InertiaCSVPath is where the elbow curve of a unit is exported for plotting.
func InertiaCSVPath(dataDir, scenario, scope string) string {
	return filepath.Join(dataDir, scenario, "inertias_"+scope+".csv")
}

// WriteInertiaCSV writes the curve as ";"-separated k;inertia rows.
func WriteInertiaCSV(path string, records []domain.InertiaRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create inertia dir: %w", err)
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create inertia csv: %w", err)
	}
	w := csv.NewWriter(f)
	w.Comma = ';'
	rows := [][]string{{"k", "inertia"}}
	for _, r := range records {
		rows = append(rows, []string{strconv.Itoa(r.K), strconv.FormatFloat(r.Inertia, 'g', -1, 64)})
	}
	if err := w.WriteAll(rows); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("write inertia csv: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close inertia csv: %w", err)
	}
	return os.Rename(tmp, path)
}

// ReadInertiaCSV parses a file written by WriteInertiaCSV.
func ReadInertiaCSV(path string) ([]domain.InertiaRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.Comma = ';'
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read inertia csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	out := make([]domain.InertiaRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		k, err := strconv.Atoi(row[0])
		if err != nil {
			return nil, fmt.Errorf("parse k %q: %w", row[0], err)
		}
		v, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			return nil, fmt.Errorf("parse inertia %q: %w", row[1], err)
		}
		out = append(out, domain.InertiaRecord{K: k, Inertia: v})
	}
	return out, nil
}

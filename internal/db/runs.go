package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const runColumns = `id, activity_id, activity_name, method, amount, cutoff,
	max_calc, scope2_refs, overrides, score, scope1, scope2, scope3, created_at`

func scanRun(scanner interface{ Scan(dest ...any) error }) (Run, error) {
	var r Run
	var refs, overrides string
	err := scanner.Scan(
		&r.ID, &r.ActivityID, &r.ActivityName, &r.Method, &r.Amount, &r.Cutoff,
		&r.MaxCalc, &refs, &overrides, &r.Score, &r.Scope1, &r.Scope2, &r.Scope3, &r.CreatedAt,
	)
	if err != nil {
		return r, err
	}
	if err := json.Unmarshal([]byte(refs), &r.Scope2Refs); err != nil {
		return r, fmt.Errorf("run %s: decoding scope 2 refs: %w", r.ID, err)
	}
	if overrides != "" {
		r.Overrides = json.RawMessage(overrides)
	}
	return r, nil
}

// InsertRun records a run. An empty ID is replaced by a new UUID and a zero
// CreatedAt by the current time. Returns the stored run ID.
func (d *DB) InsertRun(r Run) (string, error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.CreatedAt == 0 {
		r.CreatedAt = time.Now().UnixMilli()
	}
	if r.Scope2Refs == nil {
		r.Scope2Refs = []int64{}
	}
	refs, err := json.Marshal(r.Scope2Refs)
	if err != nil {
		return "", fmt.Errorf("encoding scope 2 refs: %w", err)
	}
	_, err = d.conn.Exec(`
		INSERT INTO runs (`+runColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.ActivityID, r.ActivityName, r.Method, r.Amount, r.Cutoff,
		r.MaxCalc, string(refs), string(r.Overrides), r.Score, r.Scope1, r.Scope2, r.Scope3, r.CreatedAt)
	if err != nil {
		return "", fmt.Errorf("recording run: %w", err)
	}
	return r.ID, nil
}

// ListRuns returns the most recent runs first.
func (d *DB) ListRuns(limit int) ([]Run, error) {
	rows, err := d.conn.Query(`SELECT `+runColumns+` FROM runs ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRun returns a run by full ID. Returns ErrNotFound if absent.
func (d *DB) GetRun(id string) (*Run, error) {
	r, err := scanRun(d.conn.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// SearchRunsByIDPrefix finds runs whose ID starts with the given prefix.
func (d *DB) SearchRunsByIDPrefix(prefix string, limit int) ([]Run, error) {
	rows, err := d.conn.Query(`
		SELECT `+runColumns+` FROM runs WHERE id LIKE ? ESCAPE '\' ORDER BY created_at DESC LIMIT ?
	`, escapeLike(prefix)+"%", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

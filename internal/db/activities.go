package db

import (
	"database/sql"
	"errors"
	"fmt"
)

const activityColumns = `id, code, name, type, location, unit, categories`

// scanActivity scans a row into an Activity. The row must have all 7 columns in standard order.
func scanActivity(scanner interface{ Scan(dest ...any) error }) (Activity, error) {
	var a Activity
	err := scanner.Scan(&a.ID, &a.Code, &a.Name, &a.Type, &a.Location, &a.Unit, &a.Categories)
	return a, err
}

func (d *DB) queryActivities(query string, args ...any) ([]Activity, error) {
	rows, err := d.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var activities []Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		activities = append(activities, a)
	}
	return activities, rows.Err()
}

// AllActivities returns all activities ordered by id
func (d *DB) AllActivities() ([]Activity, error) {
	return d.queryActivities(`SELECT ` + activityColumns + ` FROM activities ORDER BY id`)
}

// ListProducts returns the activities a user can pick as reference product,
// ordered by name. Emission flows are excluded.
func (d *DB) ListProducts() ([]Activity, error) {
	return d.queryActivities(`
		SELECT ` + activityColumns + `
		FROM activities WHERE type != ? ORDER BY name, id
	`, TypeEmission)
}

// GetActivity returns a single activity by ID. Returns ErrNotFound if absent.
func (d *DB) GetActivity(id int64) (*Activity, error) {
	row := d.conn.QueryRow(`SELECT `+activityColumns+` FROM activities WHERE id = ?`, id)
	a, err := scanActivity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("activity %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetActivityByCode returns a single activity by code. Returns ErrNotFound if absent.
func (d *DB) GetActivityByCode(code string) (*Activity, error) {
	row := d.conn.QueryRow(`SELECT `+activityColumns+` FROM activities WHERE code = ?`, code)
	a, err := scanActivity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("activity %q: %w", code, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ResolveName returns the display name of an activity. A stale or unknown
// reference yields an error wrapping ErrNotFound.
func (d *DB) ResolveName(id int64) (string, error) {
	var name string
	err := d.conn.QueryRow(`SELECT name FROM activities WHERE id = ?`, id).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("activity %d: %w", id, ErrNotFound)
	}
	return name, err
}

// SearchByCodePrefix finds activities whose code starts with the given prefix.
func (d *DB) SearchByCodePrefix(prefix string, limit int) ([]Activity, error) {
	return d.queryActivities(`
		SELECT `+activityColumns+`
		FROM activities WHERE code LIKE ? ESCAPE '\' ORDER BY code LIMIT ?
	`, escapeLike(prefix)+"%", limit)
}

// CountActivities returns the number of activities of the given type, or of
// all types when activityType is empty.
func (d *DB) CountActivities(activityType string) (int, error) {
	var count int
	var err error
	if activityType == "" {
		err = d.conn.QueryRow("SELECT COUNT(*) FROM activities").Scan(&count)
	} else {
		err = d.conn.QueryRow("SELECT COUNT(*) FROM activities WHERE type = ?", activityType).Scan(&count)
	}
	return count, err
}

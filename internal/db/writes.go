package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// CreateActivityOpts holds optional fields for activity creation
type CreateActivityOpts struct {
	Type       string // "process", "product", "emission"
	Location   string
	Unit       string
	Categories []string
}

// CreateActivity inserts an activity and returns its ID.
func (d *DB) CreateActivity(code, name string, opts CreateActivityOpts) (int64, error) {
	if code == "" {
		return 0, errors.New("creating activity: empty code")
	}
	if opts.Type == "" {
		opts.Type = TypeProcess
	}
	if opts.Location == "" {
		opts.Location = "GLO"
	}
	if opts.Unit == "" {
		opts.Unit = "unitless"
	}

	res, err := d.conn.Exec(`
		INSERT INTO activities (code, name, type, location, unit, categories)
		VALUES (?, ?, ?, ?, ?, ?)
	`, code, name, opts.Type, opts.Location, opts.Unit, strings.Join(opts.Categories, ","))
	if err != nil {
		return 0, fmt.Errorf("creating activity %q: %w", code, err)
	}
	if err := d.bumpRevision(); err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// EnsureActivity returns the ID of the activity with the given code,
// creating it first if it does not exist. The bool reports creation.
func (d *DB) EnsureActivity(code, name string, opts CreateActivityOpts) (int64, bool, error) {
	existing, err := d.GetActivityByCode(code)
	if err == nil {
		return existing.ID, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return 0, false, err
	}
	id, err := d.CreateActivity(code, name, opts)
	return id, err == nil, err
}

// CreateExchange inserts an exchange and returns its ID.
func (d *DB) CreateExchange(consumerID, producerID int64, exchangeType string, amount float64) (int64, error) {
	switch exchangeType {
	case ExchangeTechnosphere, ExchangeBiosphere:
	default:
		return 0, fmt.Errorf("creating exchange: unknown type %q", exchangeType)
	}
	res, err := d.conn.Exec(`
		INSERT INTO exchanges (consumer_id, producer_id, type, amount) VALUES (?, ?, ?, ?)
	`, consumerID, producerID, exchangeType, amount)
	if err != nil {
		return 0, fmt.Errorf("creating exchange %d -> %d: %w", producerID, consumerID, err)
	}
	if err := d.bumpRevision(); err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// SetCharacterizationFactor sets the factor of a flow under a method,
// replacing any previous value.
func (d *DB) SetCharacterizationFactor(method string, flowID int64, factor float64) error {
	_, err := d.conn.Exec(`
		INSERT INTO characterization_factors (method, flow_id, factor) VALUES (?, ?, ?)
		ON CONFLICT(method, flow_id) DO UPDATE SET factor = excluded.factor
	`, method, flowID, factor)
	if err != nil {
		return fmt.Errorf("setting factor %s/%d: %w", method, flowID, err)
	}
	return d.bumpRevision()
}

// SeedDefaults registers the carbon dioxide flow and the sample IPCC method
// (factor 1) so that an otherwise empty store can be used right away.
func (d *DB) SeedDefaults() error {
	id, _, err := d.EnsureActivity("co2", "Carbon Dioxide", CreateActivityOpts{
		Type:       TypeEmission,
		Unit:       "kg",
		Categories: []string{"air"},
	})
	if err != nil {
		return fmt.Errorf("seeding co2: %w", err)
	}
	return d.SetCharacterizationFactor("IPCC", id, 1)
}

// Revision returns a counter that changes whenever inventory data is written.
func (d *DB) Revision() (int64, error) {
	var value string
	err := d.conn.QueryRow(`SELECT value FROM meta WHERE key = 'revision'`).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(value, 10, 64)
}

func (d *DB) bumpRevision() error {
	_, err := d.conn.Exec(`
		INSERT INTO meta (key, value) VALUES ('revision', '1')
		ON CONFLICT(key) DO UPDATE SET value = CAST(CAST(value AS INTEGER) + 1 AS TEXT)
	`)
	if err != nil {
		return fmt.Errorf("bumping revision: %w", err)
	}
	return nil
}

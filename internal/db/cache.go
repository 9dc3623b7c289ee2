package db

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/zstd"
)

// PutTraversal stores a serialized traversal result under digest, zstd
// compressed. An existing entry for the same digest is replaced.
func (d *DB) PutTraversal(digest string, cutoff float64, payload []byte) error {
	var compressed bytes.Buffer
	encoder, err := zstd.NewWriter(&compressed)
	if err != nil {
		return fmt.Errorf("creating zstd encoder: %w", err)
	}
	if _, err := encoder.Write(payload); err != nil {
		encoder.Close()
		return fmt.Errorf("compressing: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("closing encoder: %w", err)
	}

	_, err = d.conn.Exec(`
		INSERT INTO traversal_cache (digest, cutoff, payload, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(digest) DO UPDATE SET cutoff = excluded.cutoff,
			payload = excluded.payload, created_at = excluded.created_at
	`, digest, cutoff, compressed.Bytes(), time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("storing traversal %s: %w", digest, err)
	}
	return nil
}

// GetTraversal returns the decompressed payload stored under digest.
// The bool is false when there is no entry.
func (d *DB) GetTraversal(digest string) ([]byte, bool, error) {
	var blob []byte
	err := d.conn.QueryRow(`SELECT payload FROM traversal_cache WHERE digest = ?`, digest).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	decoder, err := zstd.NewReader(bytes.NewReader(blob))
	if err != nil {
		return nil, false, fmt.Errorf("creating zstd decoder: %w", err)
	}
	defer decoder.Close()

	payload, err := io.ReadAll(decoder)
	if err != nil {
		return nil, false, fmt.Errorf("decompressing traversal %s: %w", digest, err)
	}
	return payload, true, nil
}

// PruneTraversals deletes cache entries older than the given age and returns
// how many were removed.
func (d *DB) PruneTraversals(olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan).UnixMilli()
	res, err := d.conn.Exec(`DELETE FROM traversal_cache WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

/*
Package cache stores encoded frame buffers in a SQLite database so that an
unchanged source image is not resampled and dithered again.

Frames are keyed by the SHA-1 of the source file and a fingerprint of the
encoding parameters, and are stored zstd compressed.
*/
package cache

import (
	"database/sql"
	"fmt"

	"github.com/klauspost/compress/zstd"
	_ "github.com/mattn/go-sqlite3"
)

// DB is a frame cache. It is safe for concurrent use.
type DB struct {
	db  *sql.DB
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// Open opens or creates the cache database in file.
func Open(file string) (*DB, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_busy_timeout=5000", file))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS frame (id INTEGER PRIMARY KEY NOT NULL, sha1 TEXT NOT NULL, fingerprint TEXT NOT NULL, data BLOB NOT NULL, UNIQUE(sha1, fingerprint))"); err != nil {
		db.Close()
		return nil, err
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		db.Close()
		return nil, err
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		db.Close()
		return nil, err
	}

	return &DB{
		db:  db,
		enc: enc,
		dec: dec,
	}, nil
}

// Close closes the database.
func (db *DB) Close() error {
	db.dec.Close()
	if err := db.enc.Close(); err != nil {
		db.db.Close()
		return err
	}
	return db.db.Close()
}

// Get returns the frame stored for the given source checksum and
// fingerprint, or nil if there is none.
func (db *DB) Get(sum, fingerprint string) ([]byte, error) {
	var blob []byte
	switch err := db.db.QueryRow("SELECT data FROM frame WHERE sha1 = ? AND fingerprint = ?", sum, fingerprint).Scan(&blob); err {
	case sql.ErrNoRows:
		return nil, nil
	case nil:
		b, err := db.dec.DecodeAll(blob, nil)
		if err != nil {
			return nil, fmt.Errorf("cache: corrupt frame %s: %w", sum, err)
		}
		return b, nil
	default:
		return nil, err
	}
}

// Put stores a frame, replacing any existing frame with the same key.
func (db *DB) Put(sum, fingerprint string, frame []byte) error {
	blob := db.enc.EncodeAll(frame, make([]byte, 0, len(frame)/8))
	if _, err := db.db.Exec("INSERT OR REPLACE INTO frame (sha1, fingerprint, data) VALUES (?, ?, ?)", sum, fingerprint, blob); err != nil {
		return err
	}
	return nil
}

// Delete removes the frame stored for the given key, if any.
func (db *DB) Delete(sum, fingerprint string) error {
	if _, err := db.db.Exec("DELETE FROM frame WHERE sha1 = ? AND fingerprint = ?", sum, fingerprint); err != nil {
		return err
	}
	return nil
}

// Len returns the number of frames in the cache.
func (db *DB) Len() (int, error) {
	var n int
	if err := db.db.QueryRow("SELECT COUNT(*) FROM frame").Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Purge removes every frame.
func (db *DB) Purge() error {
	if _, err := db.db.Exec("DELETE FROM frame"); err != nil {
		return err
	}
	return nil
}

// Package storage provides persistent assessment history for the risk service.
// It uses BoltDB as the underlying storage engine, with one nested bucket per
// user so that history queries are cursor range scans over time-ordered keys.
//
// The package provides thread-safe operations; BoltDB serializes writers and
// allows concurrent readers.
package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"health-risk/internal/assess"
	"health-risk/internal/features"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"
)

const (
	assessmentsBucket = "assessments"    // user -> nested bucket of records keyed by time
	idsBucket         = "assessment_ids" // record id -> user + "\x00" + time key

	dbFile = "risk-history.db"

	indexSep = 0
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrInvalidUserID rejects user ids that would collide with the id index encoding.
var ErrInvalidUserID = errors.New("invalid user id")

// Record is one stored assessment.
type Record struct {
	ID            string            `json:"id"`
	UserID        string            `json:"user_id"`
	Input         features.RawInput `json:"input"`
	Results       assess.Results    `json:"results"`
	SchemaVersion int               `json:"schema_version"`
	CreatedAt     time.Time         `json:"created_at"`
}

// Store provides persistent storage for assessment records using BoltDB.
type Store struct {
	db *bbolt.DB // BoltDB database instance
}

// New opens (or creates) the history database under dataPath.
func New(dataPath string) (*Store, error) {
	dbPath := filepath.Join(dataPath, dbFile)

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(assessmentsBucket)); err != nil {
			return fmt.Errorf("create assessments bucket: %w", err)
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(idsBucket)); err != nil {
			return fmt.Errorf("create ids bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database. Closing twice is safe.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveAssessment stores rec, assigning an ID and creation time when unset.
// The stored ID is written back to rec.
func (s *Store) SaveAssessment(rec *Record) error {
	if rec.UserID == "" {
		return fmt.Errorf("record has no user id")
	}
	if strings.IndexByte(rec.UserID, indexSep) >= 0 {
		return fmt.Errorf("%w: contains a NUL byte", ErrInvalidUserID)
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal assessment: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		ids := tx.Bucket([]byte(idsBucket))
		if ids.Get([]byte(rec.ID)) != nil {
			return fmt.Errorf("duplicate record id %s", rec.ID)
		}

		users := tx.Bucket([]byte(assessmentsBucket))
		b, err := users.CreateBucketIfNotExists([]byte(rec.UserID))
		if err != nil {
			return fmt.Errorf("create user bucket: %w", err)
		}

		key := recordKey(rec.CreatedAt, rec.ID)
		if err := b.Put(key, data); err != nil {
			return err
		}
		return ids.Put([]byte(rec.ID), indexValue(rec.UserID, key))
	})
}

// GetAssessment returns a record by id.
func (s *Store) GetAssessment(id string) (Record, error) {
	var rec Record
	err := s.db.View(func(tx *bbolt.Tx) error {
		ref := tx.Bucket([]byte(idsBucket)).Get([]byte(id))
		if ref == nil {
			return ErrNotFound
		}
		user, key, ok := bytes.Cut(ref, []byte{indexSep})
		if !ok {
			return fmt.Errorf("corrupt index entry for %s", id)
		}
		b := tx.Bucket([]byte(assessmentsBucket)).Bucket(user)
		if b == nil {
			return ErrNotFound
		}
		data := b.Get(key)
		if data == nil {
			return ErrNotFound
		}
		return json.Unmarshal(data, &rec)
	})
	return rec, err
}

// GetAssessments returns a user's records created within [start, end], oldest
// first.
func (s *Store) GetAssessments(userID string, start, end time.Time) ([]Record, error) {
	var records []Record

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(assessmentsBucket)).Bucket([]byte(userID))
		if b == nil {
			return nil
		}
		c := b.Cursor()

		startKey := timePrefix(start)
		endKey := timePrefix(end.Add(time.Nanosecond))

		for k, v := c.Seek(startKey); k != nil && bytes.Compare(k, endKey) < 0; k, v = c.Next() {
			var rec Record
			if err := json.Unmarshal(v, &rec); err != nil {
				continue // Skip malformed records
			}
			records = append(records, rec)
		}
		return nil
	})

	return records, err
}

// Recent returns up to limit of a user's records, newest first.
func (s *Store) Recent(userID string, limit int) ([]Record, error) {
	if limit <= 0 {
		return nil, nil
	}
	records := make([]Record, 0, min(limit, 64))

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(assessmentsBucket)).Bucket([]byte(userID))
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, v := c.Last(); k != nil && len(records) < limit; k, v = c.Prev() {
			var rec Record
			if err := json.Unmarshal(v, &rec); err != nil {
				continue // Skip malformed records
			}
			records = append(records, rec)
		}
		return nil
	})

	return records, err
}

// Keys are a zero-padded nanosecond timestamp followed by the id, so byte
// order is time order.
func timePrefix(t time.Time) []byte {
	return []byte(fmt.Sprintf("%020d_", t.UnixNano()))
}

func recordKey(t time.Time, id string) []byte {
	return append(timePrefix(t), id...)
}

func indexValue(userID string, key []byte) []byte {
	v := make([]byte, 0, len(userID)+1+len(key))
	v = append(v, userID...)
	v = append(v, indexSep)
	return append(v, key...)
}

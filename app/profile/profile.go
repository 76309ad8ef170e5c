/* Apache v2 license
*  Copyright (C) 2026 FitAI Authors
*
*  SPDX-License-Identifier: Apache-2.0
 */

package profile

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	// registers the "sqlite" driver
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no form has been saved yet
var ErrNotFound = errors.New("no user data found")

const schema = `
CREATE TABLE IF NOT EXISTS user_data (
	slot       INTEGER PRIMARY KEY CHECK (slot = 1),
	id         TEXT NOT NULL,
	document   TEXT NOT NULL,
	updated_at TEXT NOT NULL
);`

// Document is the free form user data record: the submitted form plus
// metadata and, once attached, cameraResults
type Document map[string]interface{}

// Store keeps the single current user data record
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open creates or opens the sqlite database at path
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open %s", path)
	}
	// sqlite allows one writer, and an in-memory database lives on a single connection
	db.SetMaxOpenConns(1)
	return New(db)
}

// New uses an already opened database
func New(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, errors.Wrap(err, "unable to create user_data schema")
	}
	return &Store{db: db, now: time.Now}, nil
}

// DB exposes the handle so other stores can share the file
func (store *Store) DB() *sql.DB {
	return store.db
}

// Close closes the database
func (store *Store) Close() error {
	return store.db.Close()
}

// SaveForm replaces the current record with form, stamped with a timestamp and id
func (store *Store) SaveForm(ctx context.Context, form Document) (Document, error) {
	now := store.now()
	doc := Document{}
	for key, value := range form {
		doc[key] = value
	}
	doc["timestamp"] = isoTimestamp(now)
	doc["id"] = fmt.Sprintf("form-%d", now.UnixNano()/int64(time.Millisecond))

	if err := store.put(ctx, doc); err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"Method": "SaveForm",
		"ID":     doc["id"],
	}).Info("form data saved")
	return doc, nil
}

// AttachCameraResults adds cameraResults to the current record. The keys of
// results are returned in sorted order.
func (store *Store) AttachCameraResults(ctx context.Context, results Document) ([]string, error) {
	doc, err := store.Get(ctx)
	if err != nil {
		return nil, err
	}

	camera := Document{}
	fields := make([]string, 0, len(results))
	for key, value := range results {
		camera[key] = value
		fields = append(fields, key)
	}
	sort.Strings(fields)
	camera["analysisTimestamp"] = isoTimestamp(store.now())
	doc["cameraResults"] = camera

	if err := store.put(ctx, doc); err != nil {
		return nil, err
	}
	return fields, nil
}

// Get returns the current record or ErrNotFound
func (store *Store) Get(ctx context.Context) (Document, error) {
	var body string
	err := store.db.QueryRowContext(ctx, `SELECT document FROM user_data WHERE slot = 1`).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "unable to read user data")
	}

	doc := Document{}
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return nil, errors.Wrap(err, "stored user data is corrupt")
	}
	return doc, nil
}

func (store *Store) put(ctx context.Context, doc Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "unable to marshal user data")
	}
	_, err = store.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO user_data (slot, id, document, updated_at) VALUES (1, ?, ?, ?)`,
		fmt.Sprint(doc["id"]), string(body), isoTimestamp(store.now()))
	return errors.Wrap(err, "unable to save user data")
}

func isoTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

// String returns a field as text, or "" when it is missing
func (doc Document) String(key string) string {
	switch value := doc[key].(type) {
	case nil:
		return ""
	case string:
		return value
	default:
		return fmt.Sprint(value)
	}
}

// Float parses a numeric field that may have been submitted as a string
func (doc Document) Float(key string) (float64, bool) {
	switch value := doc[key].(type) {
	case float64:
		return value, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		return f, err == nil
	}
	return 0, false
}

// Object returns a nested object field
func (doc Document) Object(key string) (Document, bool) {
	switch value := doc[key].(type) {
	case map[string]interface{}:
		return Document(value), true
	case Document:
		return value, true
	}
	return nil, false
}

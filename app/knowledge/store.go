/* Apache v2 license
*  Copyright (C) 2026 FitAI Authors
*
*  SPDX-License-Identifier: Apache-2.0
 */

package knowledge

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"io"
	"io/ioutil"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const schema = `
CREATE TABLE IF NOT EXISTS exercises (
	id           INTEGER PRIMARY KEY,
	name         TEXT NOT NULL,
	description  TEXT NOT NULL DEFAULT '',
	muscle_group TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS nutrition (
	id        INTEGER PRIMARY KEY,
	food_name TEXT NOT NULL,
	category  TEXT NOT NULL DEFAULT '',
	calories  REAL NOT NULL DEFAULT 0,
	protein   REAL NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS college_gyms (
	id              INTEGER PRIMARY KEY,
	name            TEXT NOT NULL,
	description     TEXT NOT NULL DEFAULT '',
	location        TEXT NOT NULL DEFAULT '',
	hours_operation TEXT NOT NULL DEFAULT '',
	amenities       TEXT NOT NULL DEFAULT '[]'
);
CREATE TABLE IF NOT EXISTS gym_machines (
	id                  INTEGER PRIMARY KEY,
	gym_id              INTEGER REFERENCES college_gyms(id),
	name                TEXT NOT NULL,
	description         TEXT NOT NULL DEFAULT '',
	machine_type        TEXT NOT NULL DEFAULT '',
	brand               TEXT NOT NULL DEFAULT '',
	muscle_groups       TEXT NOT NULL DEFAULT '[]',
	availability_status TEXT NOT NULL DEFAULT '',
	condition           TEXT NOT NULL DEFAULT '',
	quantity            INTEGER NOT NULL DEFAULT 1
);
CREATE TABLE IF NOT EXISTS dining_locations (
	id             INTEGER PRIMARY KEY,
	name           TEXT NOT NULL,
	location       TEXT NOT NULL DEFAULT '',
	type           TEXT NOT NULL DEFAULT '',
	food_available TEXT NOT NULL DEFAULT '[]'
);`

//go:embed seed.yaml
var defaultSeed []byte

type Exercise struct {
	ID          int64  `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	MuscleGroup string `yaml:"muscle_group"`
}

type Food struct {
	ID       int64   `yaml:"id"`
	FoodName string  `yaml:"food_name"`
	Category string  `yaml:"category"`
	Calories float64 `yaml:"calories"`
	Protein  float64 `yaml:"protein"`
}

type Gym struct {
	ID             int64    `yaml:"id"`
	Name           string   `yaml:"name"`
	Description    string   `yaml:"description"`
	Location       string   `yaml:"location"`
	HoursOperation string   `yaml:"hours_operation"`
	Amenities      []string `yaml:"amenities"`
}

type Machine struct {
	ID                 int64    `yaml:"id"`
	GymID              int64    `yaml:"gym_id"`
	Name               string   `yaml:"name"`
	Description        string   `yaml:"description"`
	MachineType        string   `yaml:"machine_type"`
	Brand              string   `yaml:"brand"`
	MuscleGroups       []string `yaml:"muscle_groups"`
	AvailabilityStatus string   `yaml:"availability_status"`
	Condition          string   `yaml:"condition"`
	Quantity           int      `yaml:"quantity"`
	// GymName is filled from college_gyms when reading
	GymName string `yaml:"-"`
}

type DiningLocation struct {
	ID            int64    `yaml:"id"`
	Name          string   `yaml:"name"`
	Location      string   `yaml:"location"`
	Type          string   `yaml:"type"`
	FoodAvailable []string `yaml:"food_available"`
}

// Seed is the content of a knowledge fixture file
type Seed struct {
	Exercises       []Exercise       `yaml:"exercises"`
	Nutrition       []Food           `yaml:"nutrition"`
	CollegeGyms     []Gym            `yaml:"college_gyms"`
	GymMachines     []Machine        `yaml:"gym_machines"`
	DiningLocations []DiningLocation `yaml:"dining_locations"`
}

// Store answers keyword searches against the fitness knowledge tables
type Store struct {
	db *sql.DB
}

// New creates the tables if needed and loads the bundled seed when they are empty
func New(ctx context.Context, db *sql.DB) (*Store, error) {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, errors.Wrap(err, "unable to create knowledge schema")
	}
	store := &Store{db: db}

	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM exercises`).Scan(&count); err != nil {
		return nil, errors.Wrap(err, "unable to count exercises")
	}
	if count == 0 {
		if err := store.Load(ctx, strings.NewReader(string(defaultSeed))); err != nil {
			return nil, err
		}
	}
	return store, nil
}

// Load inserts or replaces every row in a YAML seed
func (store *Store) Load(ctx context.Context, reader io.Reader) error {
	contents, err := ioutil.ReadAll(reader)
	if err != nil {
		return errors.Wrap(err, "unable to read seed")
	}
	var seed Seed
	if err := yaml.Unmarshal(contents, &seed); err != nil {
		return errors.Wrap(err, "unable to parse seed")
	}

	tx, err := store.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "unable to begin seed transaction")
	}
	defer tx.Rollback()

	for _, e := range seed.Exercises {
		if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO exercises (id, name, description, muscle_group) VALUES (?, ?, ?, ?)`,
			e.ID, e.Name, e.Description, e.MuscleGroup); err != nil {
			return errors.Wrapf(err, "unable to insert exercise %s", e.Name)
		}
	}
	for _, f := range seed.Nutrition {
		if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO nutrition (id, food_name, category, calories, protein) VALUES (?, ?, ?, ?, ?)`,
			f.ID, f.FoodName, f.Category, f.Calories, f.Protein); err != nil {
			return errors.Wrapf(err, "unable to insert food %s", f.FoodName)
		}
	}
	for _, g := range seed.CollegeGyms {
		if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO college_gyms (id, name, description, location, hours_operation, amenities) VALUES (?, ?, ?, ?, ?, ?)`,
			g.ID, g.Name, g.Description, g.Location, g.HoursOperation, encodeList(g.Amenities)); err != nil {
			return errors.Wrapf(err, "unable to insert gym %s", g.Name)
		}
	}
	for _, m := range seed.GymMachines {
		quantity := m.Quantity
		if quantity == 0 {
			quantity = 1
		}
		if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO gym_machines
			(id, gym_id, name, description, machine_type, brand, muscle_groups, availability_status, condition, quantity)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			m.ID, m.GymID, m.Name, m.Description, m.MachineType, m.Brand, encodeList(m.MuscleGroups),
			m.AvailabilityStatus, m.Condition, quantity); err != nil {
			return errors.Wrapf(err, "unable to insert machine %s", m.Name)
		}
	}
	for _, d := range seed.DiningLocations {
		if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO dining_locations (id, name, location, type, food_available) VALUES (?, ?, ?, ?, ?)`,
			d.ID, d.Name, d.Location, d.Type, encodeList(d.FoodAvailable)); err != nil {
			return errors.Wrapf(err, "unable to insert dining location %s", d.Name)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "unable to commit seed")
	}
	logrus.WithFields(logrus.Fields{
		"Method":    "knowledge.Load",
		"Exercises": len(seed.Exercises),
		"Gyms":      len(seed.CollegeGyms),
		"Dining":    len(seed.DiningLocations),
	}).Info("knowledge base loaded")
	return nil
}

func encodeList(values []string) string {
	if values == nil {
		values = []string{}
	}
	body, _ := json.Marshal(values)
	return string(body)
}

func decodeList(text string) []string {
	var values []string
	if err := json.Unmarshal([]byte(text), &values); err != nil {
		logrus.Debugf("ignoring malformed list column %q: %v", text, err)
	}
	return values
}

// likeAny builds "(c1 LIKE ? OR c2 LIKE ? ...)" over every column and term pair
func likeAny(columns []string, terms []string) (string, []interface{}) {
	clauses := make([]string, 0, len(columns)*len(terms))
	args := make([]interface{}, 0, len(columns)*len(terms))
	for _, term := range terms {
		pattern := "%" + escapeLike(term) + "%"
		for _, column := range columns {
			clauses = append(clauses, column+` LIKE ? ESCAPE '\'`)
			args = append(args, pattern)
		}
	}
	if len(clauses) == 0 {
		return "0", nil
	}
	return "(" + strings.Join(clauses, " OR ") + ")", args
}

func escapeLike(term string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(term)
}

func (store *Store) searchExercises(ctx context.Context, terms []string, limit int) ([]Exercise, error) {
	where, args := likeAny([]string{"name"}, terms)
	rows, err := store.db.QueryContext(ctx,
		`SELECT id, name, description, muscle_group FROM exercises WHERE `+where+` ORDER BY id LIMIT ?`,
		append(args, limit)...)
	if err != nil {
		return nil, errors.Wrap(err, "unable to search exercises")
	}
	defer rows.Close()

	var out []Exercise
	for rows.Next() {
		var e Exercise
		if err := rows.Scan(&e.ID, &e.Name, &e.Description, &e.MuscleGroup); err != nil {
			return nil, errors.Wrap(err, "unable to read exercise")
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (store *Store) searchNutrition(ctx context.Context, terms []string, limit int) ([]Food, error) {
	where, args := likeAny([]string{"food_name", "category"}, terms)
	rows, err := store.db.QueryContext(ctx,
		`SELECT id, food_name, category, calories, protein FROM nutrition WHERE `+where+` ORDER BY id LIMIT ?`,
		append(args, limit)...)
	if err != nil {
		return nil, errors.Wrap(err, "unable to search nutrition")
	}
	defer rows.Close()

	var out []Food
	for rows.Next() {
		var f Food
		if err := rows.Scan(&f.ID, &f.FoodName, &f.Category, &f.Calories, &f.Protein); err != nil {
			return nil, errors.Wrap(err, "unable to read food")
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (store *Store) searchGyms(ctx context.Context, terms []string, limit int) ([]Gym, error) {
	where, args := likeAny([]string{"name", "description", "location"}, terms)
	rows, err := store.db.QueryContext(ctx,
		`SELECT id, name, description, location, hours_operation, amenities FROM college_gyms WHERE `+where+` ORDER BY id LIMIT ?`,
		append(args, limit)...)
	if err != nil {
		return nil, errors.Wrap(err, "unable to search gyms")
	}
	defer rows.Close()

	var out []Gym
	for rows.Next() {
		var g Gym
		var amenities string
		if err := rows.Scan(&g.ID, &g.Name, &g.Description, &g.Location, &g.HoursOperation, &amenities); err != nil {
			return nil, errors.Wrap(err, "unable to read gym")
		}
		g.Amenities = decodeList(amenities)
		out = append(out, g)
	}
	return out, rows.Err()
}

func (store *Store) searchMachines(ctx context.Context, terms []string, limit int) ([]Machine, error) {
	where, args := likeAny([]string{"m.name", "m.description", "m.machine_type", "m.brand"}, terms)
	rows, err := store.db.QueryContext(ctx, `
		SELECT m.id, COALESCE(m.gym_id, 0), m.name, m.description, m.machine_type, m.brand, m.muscle_groups,
		       m.availability_status, m.condition, m.quantity, COALESCE(g.name, '')
		FROM gym_machines m LEFT JOIN college_gyms g ON g.id = m.gym_id
		WHERE `+where+` ORDER BY m.id LIMIT ?`,
		append(args, limit)...)
	if err != nil {
		return nil, errors.Wrap(err, "unable to search machines")
	}
	defer rows.Close()

	var out []Machine
	for rows.Next() {
		var m Machine
		var groups string
		if err := rows.Scan(&m.ID, &m.GymID, &m.Name, &m.Description, &m.MachineType, &m.Brand, &groups,
			&m.AvailabilityStatus, &m.Condition, &m.Quantity, &m.GymName); err != nil {
			return nil, errors.Wrap(err, "unable to read machine")
		}
		m.MuscleGroups = decodeList(groups)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (store *Store) diningLocations(ctx context.Context, where string, args []interface{}, limit int) ([]DiningLocation, error) {
	query := `SELECT id, name, location, type, food_available FROM dining_locations`
	if where != "" {
		query += ` WHERE ` + where
	}
	query += ` ORDER BY id`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "unable to search dining locations")
	}
	defer rows.Close()

	var out []DiningLocation
	for rows.Next() {
		var d DiningLocation
		var food string
		if err := rows.Scan(&d.ID, &d.Name, &d.Location, &d.Type, &food); err != nil {
			return nil, errors.Wrap(err, "unable to read dining location")
		}
		d.FoodAvailable = decodeList(food)
		out = append(out, d)
	}
	return out, rows.Err()
}

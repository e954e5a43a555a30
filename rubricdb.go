package coursegrader

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// RubricDB is the instructor's rubric bank: rubrics, sample answers with
// the verdict the instructor expects, and the history of check runs.
type RubricDB struct {
	db *sql.DB
}

// Sample is an instructor-written answer with its expected verdict.
type Sample struct {
	ID         int64  `json:"id"`
	RubricID   string `json:"rubric_id"`
	Answer     string `json:"answer"`
	ExpectPass bool   `json:"expect_pass"`
}

// CheckRun is one recorded execution of CheckRubrics.
type CheckRun struct {
	ID          string    `json:"id"`
	StartedAt   time.Time `json:"started_at"`
	Checked     int       `json:"checked"`
	Regressions int       `json:"regressions"`
	Invalid     int       `json:"invalid"`
}

// OpenRubricDB opens the sqlite database at dbPath.
func OpenRubricDB(dbPath string) (*RubricDB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &RubricDB{db: db}, nil
}

// Close closes the database connection
func (rdb *RubricDB) Close() error {
	return rdb.db.Close()
}

// CreateTables creates the necessary tables if they don't exist
func (rdb *RubricDB) CreateTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS rubrics (
			id TEXT PRIMARY KEY,
			prompt TEXT NOT NULL,
			terms TEXT NOT NULL,
			threshold REAL NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS samples (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			rubric_id TEXT NOT NULL,
			answer TEXT NOT NULL,
			expect_pass BOOLEAN NOT NULL,
			FOREIGN KEY (rubric_id) REFERENCES rubrics(id)
		)`,
		`CREATE TABLE IF NOT EXISTS check_runs (
			id TEXT PRIMARY KEY,
			started_at DATETIME NOT NULL,
			checked INTEGER NOT NULL,
			regressions INTEGER NOT NULL,
			invalid INTEGER NOT NULL
		)`,
	}

	for _, query := range queries {
		if _, err := rdb.db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute %s: %w", query, err)
		}
	}
	return nil
}

// SaveRubric inserts or replaces a rubric. A missing threshold is stored as
// DefaultPassThreshold; an invalid one is stored as authored so
// CheckRubrics can report it.
func (rdb *RubricDB) SaveRubric(r Rubric) error {
	termsJSON, err := TermsToJSON(r.Terms)
	if err != nil {
		return err
	}
	_, err = rdb.db.Exec(
		`INSERT INTO rubrics (id, prompt, terms, threshold, updated_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET prompt = excluded.prompt, terms = excluded.terms,
			threshold = excluded.threshold, updated_at = excluded.updated_at`,
		r.ID, r.Prompt, termsJSON, r.EffectiveThreshold(), time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to save rubric: %w", err)
	}
	return nil
}

// GetRubric retrieves a rubric by ID
func (rdb *RubricDB) GetRubric(id string) (*Rubric, error) {
	var r Rubric
	var termsJSON string
	var threshold float64
	err := rdb.db.QueryRow(
		"SELECT id, prompt, terms, threshold FROM rubrics WHERE id = ?",
		id,
	).Scan(&r.ID, &r.Prompt, &termsJSON, &threshold)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrRubricNotFound, id)
		}
		return nil, fmt.Errorf("failed to get rubric: %w", err)
	}
	if r.Terms, err = JSONToTerms(termsJSON); err != nil {
		return nil, err
	}
	r.Threshold = &threshold
	return &r, nil
}

// GetRubrics retrieves all rubrics ordered by id
func (rdb *RubricDB) GetRubrics() ([]Rubric, error) {
	rows, err := rdb.db.Query("SELECT id, prompt, terms, threshold FROM rubrics ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to get rubrics: %w", err)
	}
	defer rows.Close()

	var rubrics []Rubric
	for rows.Next() {
		var r Rubric
		var termsJSON string
		var threshold float64
		if err := rows.Scan(&r.ID, &r.Prompt, &termsJSON, &threshold); err != nil {
			return nil, fmt.Errorf("failed to scan rubric: %w", err)
		}
		if r.Terms, err = JSONToTerms(termsJSON); err != nil {
			return nil, err
		}
		r.Threshold = &threshold
		rubrics = append(rubrics, r)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rubrics: %w", err)
	}
	return rubrics, nil
}

// AddSample stores a sample answer for an existing rubric.
func (rdb *RubricDB) AddSample(s *Sample) error {
	if _, err := rdb.GetRubric(s.RubricID); err != nil {
		return err
	}
	res, err := rdb.db.Exec(
		"INSERT INTO samples (rubric_id, answer, expect_pass) VALUES (?, ?, ?)",
		s.RubricID, s.Answer, s.ExpectPass,
	)
	if err != nil {
		return fmt.Errorf("failed to add sample: %w", err)
	}
	if s.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("failed to read sample id: %w", err)
	}
	return nil
}

// GetSamples retrieves every sample in insertion order
func (rdb *RubricDB) GetSamples() ([]Sample, error) {
	rows, err := rdb.db.Query("SELECT id, rubric_id, answer, expect_pass FROM samples ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to get samples: %w", err)
	}
	defer rows.Close()

	var samples []Sample
	for rows.Next() {
		var s Sample
		if err := rows.Scan(&s.ID, &s.RubricID, &s.Answer, &s.ExpectPass); err != nil {
			return nil, fmt.Errorf("failed to scan sample: %w", err)
		}
		samples = append(samples, s)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating samples: %w", err)
	}
	return samples, nil
}

// RecordRun stores the outcome of a check run.
func (rdb *RubricDB) RecordRun(run CheckRun) error {
	_, err := rdb.db.Exec(
		"INSERT INTO check_runs (id, started_at, checked, regressions, invalid) VALUES (?, ?, ?, ?, ?)",
		run.ID, run.StartedAt, run.Checked, run.Regressions, run.Invalid,
	)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

// GetRuns returns recorded runs, newest first, optionally limited by count
func (rdb *RubricDB) GetRuns(limit int) ([]CheckRun, error) {
	query := "SELECT id, started_at, checked, regressions, invalid FROM check_runs ORDER BY started_at DESC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := rdb.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to get runs: %w", err)
	}
	defer rows.Close()

	var runs []CheckRun
	for rows.Next() {
		var run CheckRun
		if err := rows.Scan(&run.ID, &run.StartedAt, &run.Checked, &run.Regressions, &run.Invalid); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}

// TermsToJSON encodes expected terms for the terms column.
func TermsToJSON(terms []string) (string, error) {
	if terms == nil {
		terms = []string{}
	}
	data, err := json.Marshal(terms)
	if err != nil {
		return "", fmt.Errorf("failed to marshal terms: %w", err)
	}
	return string(data), nil
}

// JSONToTerms decodes the terms column.
func JSONToTerms(termsJSON string) ([]string, error) {
	var terms []string
	if err := json.Unmarshal([]byte(termsJSON), &terms); err != nil {
		return nil, fmt.Errorf("failed to unmarshal terms: %w", err)
	}
	return terms, nil
}

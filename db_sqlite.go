package soltoken

import (
	"database/sql"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

type SqlLiteDatabase struct {
	db *sql.DB
	mu sync.Mutex
}

var _ Database = &SqlLiteDatabase{}

func NewSqlLiteDatabase(path string) (db *SqlLiteDatabase, err error) {
	log.Info().Msgf("opening sqlite db at: '%s'", path)

	sqldb, err := sql.Open("sqlite3", path)
	if err != nil {
		err = errors.Wrap(err, "failed to open database")
		return
	}

	if err = sqldb.Ping(); err != nil {
		_ = sqldb.Close()
		err = errors.Wrap(err, "failed to ping database")
		return
	}

	db = &SqlLiteDatabase{db: sqldb}
	if err = db.initTables(); err != nil {
		_ = sqldb.Close()
		err = errors.Wrap(err, "failed to init tables")
		return
	}

	return
}

func (s *SqlLiteDatabase) initTables() (err error) {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS submission (
			signature TEXT PRIMARY KEY,
			route TEXT NOT NULL,
			payer TEXT,
			submitted_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_submission_route ON submission(route)`,
	}

	for i, query := range queries {
		_, err = s.db.Exec(query)
		if err != nil {
			err = errors.Wrapf(err, "failed to execute query: %d", i)
			return
		}
	}

	return
}

func (s *SqlLiteDatabase) RecordSubmission(sub Submission) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sub.Signature == "" {
		return errors.New("submission requires a signature")
	}
	if sub.SubmittedAt.IsZero() {
		sub.SubmittedAt = time.Now().UTC()
	}

	_, err = s.db.Exec(
		`INSERT OR REPLACE INTO submission (signature, route, payer, submitted_at) VALUES (?, ?, ?, ?)`,
		sub.Signature,
		sub.Route,
		sub.Payer,
		sub.SubmittedAt,
	)

	return errors.Wrap(err, "failed to record submission")
}

func (s *SqlLiteDatabase) GetSubmission(signature string) (sub Submission, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRow(
		`SELECT signature, route, payer, submitted_at FROM submission WHERE signature = ?`,
		signature,
	)

	err = row.Scan(&sub.Signature, &sub.Route, &sub.Payer, &sub.SubmittedAt)
	if errors.Is(err, sql.ErrNoRows) {
		err = errors.Wrapf(ErrSubmissionNotFound, "signature %s", signature)
		return
	}

	err = errors.Wrap(err, "failed to read submission")
	return
}

func (s *SqlLiteDatabase) ListSubmissions(route string) (subs []Submission, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `SELECT signature, route, payer, submitted_at FROM submission ORDER BY submitted_at`
	args := []any{}
	if route != "" {
		query = `SELECT signature, route, payer, submitted_at FROM submission WHERE route = ? ORDER BY submitted_at`
		args = append(args, route)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		err = errors.Wrap(err, "failed to list submissions")
		return
	}
	defer func() {
		_ = rows.Close()
	}()

	for rows.Next() {
		var sub Submission
		if err = rows.Scan(&sub.Signature, &sub.Route, &sub.Payer, &sub.SubmittedAt); err != nil {
			err = errors.Wrap(err, "failed to scan submission")
			return
		}
		subs = append(subs, sub)
	}

	err = errors.Wrap(rows.Err(), "failed to iterate submissions")
	return
}

func (s *SqlLiteDatabase) Close() (err error) {
	return errors.WithStack(s.db.Close())
}

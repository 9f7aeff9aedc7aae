package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/lead-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. Tags are stored as
// a JSON array.
type SQLiteStore struct {
	db    *sql.DB
	table string
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn, table string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	if table == "" {
		table = DefaultTable
	}
	return &SQLiteStore{db: db, table: table}, nil
}

// Name implements Store.
func (s *SQLiteStore) Name() string { return "sqlite" }

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS %[1]s (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	name              TEXT NOT NULL,
	bio               TEXT NOT NULL,
	url               TEXT NOT NULL,
	email             TEXT NOT NULL,
	platform          TEXT NOT NULL DEFAULT 'LinkedIn',
	"angelScore"      REAL NOT NULL,
	"icpScore"        REAL NOT NULL,
	"finalScore"      REAL NOT NULL,
	tags              TEXT NOT NULL DEFAULT '[]',
	meeting_scheduled BOOLEAN NOT NULL DEFAULT 0,
	meeting_time      DATETIME,
	created_at        DATETIME NOT NULL DEFAULT (datetime('now')),
	outreach_status   TEXT
);

CREATE INDEX IF NOT EXISTS idx_leads_url ON %[1]s(url);
CREATE INDEX IF NOT EXISTS idx_leads_created_at ON %[1]s(created_at);

CREATE TABLE IF NOT EXISTS failed_leads (
	url       TEXT PRIMARY KEY,
	id        TEXT NOT NULL,
	name      TEXT NOT NULL DEFAULT '',
	email     TEXT NOT NULL DEFAULT '',
	step      TEXT NOT NULL,
	error     TEXT NOT NULL,
	attempts  INTEGER NOT NULL DEFAULT 1,
	failed_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_failed_leads_failed_at ON failed_leads(failed_at);
`

func (s *SQLiteStore) quotedTable() string {
	return strconv.Quote(s.table)
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(sqliteMigration, s.quotedTable()))
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// InsertLeads inserts all records in one transaction.
func (s *SQLiteStore) InsertLeads(ctx context.Context, leads []model.LeadRecord) (int, error) {
	if len(leads) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin insert leads")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		`INSERT INTO %s (name, bio, url, email, platform, "angelScore", "icpScore", "finalScore",
		 tags, meeting_scheduled, meeting_time, created_at, outreach_status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.quotedTable()))
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare insert lead")
	}
	defer stmt.Close() //nolint:errcheck

	for _, l := range leads {
		tags := l.Tags
		if tags == nil {
			tags = []string{}
		}
		tagsJSON, err := json.Marshal(tags)
		if err != nil {
			return 0, eris.Wrap(err, "sqlite: marshal tags")
		}
		var meeting any
		if l.MeetingTime != nil {
			meeting = l.MeetingTime.UTC()
		}
		if _, err := stmt.ExecContext(ctx,
			l.Name, l.Bio, l.URL, l.Email, l.Platform,
			l.AngelScore, l.ICPScore, l.FinalScore,
			string(tagsJSON), l.MeetingScheduled, meeting, l.CreatedAt.UTC(), nullString(string(l.OutreachStatus)),
		); err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert lead %s", l.URL)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit insert leads")
	}
	return len(leads), nil
}

func (s *SQLiteStore) ListLeads(ctx context.Context, filter LeadFilter) ([]model.LeadRecord, error) {
	query := fmt.Sprintf(`SELECT name, bio, url, email, platform, "angelScore", "icpScore", "finalScore",
		tags, meeting_scheduled, meeting_time, created_at, outreach_status
		FROM %s WHERE "finalScore" >= ? ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`, s.quotedTable())

	rows, err := s.db.QueryContext(ctx, query, filter.MinFinalScore, limitOrDefault(filter.Limit), max(filter.Offset, 0))
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list leads")
	}
	defer rows.Close() //nolint:errcheck

	var leads []model.LeadRecord
	for rows.Next() {
		var l model.LeadRecord
		var tagsJSON string
		var meeting sql.NullTime
		var status sql.NullString
		if err := rows.Scan(&l.Name, &l.Bio, &l.URL, &l.Email, &l.Platform,
			&l.AngelScore, &l.ICPScore, &l.FinalScore,
			&tagsJSON, &l.MeetingScheduled, &meeting, &l.CreatedAt, &status); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan lead")
		}
		if err := json.Unmarshal([]byte(tagsJSON), &l.Tags); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal tags")
		}
		if meeting.Valid {
			t := meeting.Time
			l.MeetingTime = &t
		}
		l.OutreachStatus = model.OutreachStatus(status.String)
		leads = append(leads, l)
	}
	return leads, eris.Wrap(rows.Err(), "sqlite: list leads iterate")
}

// Dead letter queue methods

func (s *SQLiteStore) RecordFailure(ctx context.Context, f model.FailedLead) error {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	if f.FailedAt.IsZero() {
		f.FailedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO failed_leads (url, id, name, email, step, error, attempts, failed_at)
		 VALUES (?, ?, ?, ?, ?, ?, 1, ?)
		 ON CONFLICT (url) DO UPDATE SET
		   name = COALESCE(NULLIF(excluded.name, ''), failed_leads.name),
		   email = COALESCE(NULLIF(excluded.email, ''), failed_leads.email),
		   step = excluded.step, error = excluded.error,
		   attempts = failed_leads.attempts + 1, failed_at = excluded.failed_at`,
		f.URL, f.ID, f.Name, f.Email, f.Step, f.Error, f.FailedAt.UTC(),
	)
	return eris.Wrapf(err, "sqlite: record failure %s", f.URL)
}

func (s *SQLiteStore) ListFailures(ctx context.Context, limit int) ([]model.FailedLead, error) {
	if limit <= 0 {
		limit = -1 // SQLite: negative LIMIT is unbounded
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, url, name, email, step, error, attempts, failed_at
		 FROM failed_leads ORDER BY failed_at ASC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list failures")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.FailedLead
	for rows.Next() {
		var f model.FailedLead
		if err := rows.Scan(&f.ID, &f.URL, &f.Name, &f.Email, &f.Step, &f.Error, &f.Attempts, &f.FailedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan failure")
		}
		out = append(out, f)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list failures iterate")
}

func (s *SQLiteStore) ClearFailure(ctx context.Context, url string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM failed_leads WHERE url = ?`, url)
	return eris.Wrapf(err, "sqlite: clear failure %s", url)
}

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-cli/internal/db"
	"github.com/sells-group/lead-cli/internal/model"
)

// PostgresStore implements Store using pgxpool. It works against a plain
// PostgreSQL server as well as a Supabase database URL.
type PostgresStore struct {
	pool    db.Pool
	table   string
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool. An empty table
// means DefaultTable.
func NewPostgres(ctx context.Context, connString, table string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(0)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return newPostgresStore(pool, table, pool.Close), nil
}

func newPostgresStore(pool db.Pool, table string, closeFn func()) *PostgresStore {
	if table == "" {
		table = DefaultTable
	}
	return &PostgresStore{pool: pool, table: table, closeFn: closeFn}
}

// Name implements Store.
func (s *PostgresStore) Name() string { return "postgres" }

const postgresMigration = `
CREATE TABLE IF NOT EXISTS %[1]s (
	id                BIGSERIAL PRIMARY KEY,
	name              TEXT NOT NULL,
	bio               TEXT NOT NULL,
	url               TEXT NOT NULL,
	email             TEXT NOT NULL,
	platform          TEXT NOT NULL DEFAULT 'LinkedIn',
	"angelScore"      DOUBLE PRECISION NOT NULL,
	"icpScore"        DOUBLE PRECISION NOT NULL,
	"finalScore"      DOUBLE PRECISION NOT NULL,
	tags              TEXT[] NOT NULL DEFAULT '{}',
	meeting_scheduled BOOLEAN NOT NULL DEFAULT false,
	meeting_time      TIMESTAMPTZ,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
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
	failed_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_failed_leads_failed_at ON failed_leads(failed_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, fmt.Sprintf(postgresMigration, db.Identifier(s.table).Sanitize()))
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// InsertLeads bulk-inserts records with COPY.
func (s *PostgresStore) InsertLeads(ctx context.Context, leads []model.LeadRecord) (int, error) {
	rows := make([][]any, 0, len(leads))
	for _, l := range leads {
		tags := l.Tags
		if tags == nil {
			tags = []string{}
		}
		rows = append(rows, []any{
			l.Name, l.Bio, l.URL, l.Email, l.Platform,
			l.AngelScore, l.ICPScore, l.FinalScore,
			tags, l.MeetingScheduled, l.MeetingTime, l.CreatedAt, nullString(string(l.OutreachStatus)),
		})
	}

	n, err := db.CopyFrom(ctx, s.pool, s.table, leadColumns, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: insert leads")
	}
	return int(n), nil
}

func (s *PostgresStore) ListLeads(ctx context.Context, filter LeadFilter) ([]model.LeadRecord, error) {
	query := fmt.Sprintf(`SELECT name, bio, url, email, platform, "angelScore", "icpScore", "finalScore",
		tags, meeting_scheduled, meeting_time, created_at, outreach_status
		FROM %s WHERE "finalScore" >= $1 ORDER BY created_at DESC, id DESC LIMIT $2`,
		db.Identifier(s.table).Sanitize())
	args := []any{filter.MinFinalScore, limitOrDefault(filter.Limit)}
	if filter.Offset > 0 {
		query += ` OFFSET $3`
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list leads")
	}
	defer rows.Close()

	var leads []model.LeadRecord
	for rows.Next() {
		var l model.LeadRecord
		var status *string
		if err := rows.Scan(&l.Name, &l.Bio, &l.URL, &l.Email, &l.Platform,
			&l.AngelScore, &l.ICPScore, &l.FinalScore,
			&l.Tags, &l.MeetingScheduled, &l.MeetingTime, &l.CreatedAt, &status); err != nil {
			return nil, eris.Wrap(err, "postgres: scan lead")
		}
		if status != nil {
			l.OutreachStatus = model.OutreachStatus(*status)
		}
		leads = append(leads, l)
	}
	return leads, eris.Wrap(rows.Err(), "postgres: list leads iterate")
}

// Dead letter queue methods

func (s *PostgresStore) RecordFailure(ctx context.Context, f model.FailedLead) error {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	if f.FailedAt.IsZero() {
		f.FailedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO failed_leads (url, id, name, email, step, error, attempts, failed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, 1, $7)
		 ON CONFLICT (url) DO UPDATE SET
		   name = COALESCE(NULLIF(EXCLUDED.name, ''), failed_leads.name),
		   email = COALESCE(NULLIF(EXCLUDED.email, ''), failed_leads.email),
		   step = EXCLUDED.step, error = EXCLUDED.error,
		   attempts = failed_leads.attempts + 1, failed_at = EXCLUDED.failed_at`,
		f.URL, f.ID, f.Name, f.Email, f.Step, f.Error, f.FailedAt,
	)
	return eris.Wrapf(err, "postgres: record failure %s", f.URL)
}

func (s *PostgresStore) ListFailures(ctx context.Context, limit int) ([]model.FailedLead, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, url, name, email, step, error, attempts, failed_at
		 FROM failed_leads ORDER BY failed_at ASC LIMIT $1`,
		failureLimit(limit),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list failures")
	}
	defer rows.Close()

	var out []model.FailedLead
	for rows.Next() {
		var f model.FailedLead
		if err := rows.Scan(&f.ID, &f.URL, &f.Name, &f.Email, &f.Step, &f.Error, &f.Attempts, &f.FailedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan failure")
		}
		out = append(out, f)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list failures iterate")
}

func (s *PostgresStore) ClearFailure(ctx context.Context, url string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM failed_leads WHERE url = $1`, url)
	return eris.Wrapf(err, "postgres: clear failure %s", url)
}

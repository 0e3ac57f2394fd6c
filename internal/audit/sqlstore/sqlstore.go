package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/cardwise/warden/internal/audit"
	"github.com/cardwise/warden/pkg/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS audit_events (
	event_id       TEXT PRIMARY KEY,
	ts             TEXT NOT NULL,
	query_id       TEXT NOT NULL DEFAULT '',
	session_id     TEXT NOT NULL DEFAULT '',
	stage          TEXT NOT NULL,
	decision       TEXT NOT NULL,
	rules_json     TEXT NOT NULL DEFAULT '[]',
	policy_version INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_audit_events_ts ON audit_events (ts);
CREATE INDEX IF NOT EXISTS idx_audit_events_session ON audit_events (session_id, ts);
CREATE INDEX IF NOT EXISTS idx_audit_events_query ON audit_events (query_id);
CREATE INDEX IF NOT EXISTS idx_audit_events_policy ON audit_events (policy_version);

CREATE TABLE IF NOT EXISTS policy_versions (
	version     INTEGER PRIMARY KEY,
	created_at  TEXT NOT NULL,
	config_yaml TEXT NOT NULL
);
`

// Store persists the audit trail in SQLite. Appends are single-row inserts in
// autocommit mode so unrelated requests do not serialize on long transactions.
type Store struct {
	db *sql.DB
}

func OpenSQLite(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Append(ctx context.Context, event types.AuditEvent) error {
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	rules, err := json.Marshal(event.Rules)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO audit_events (event_id, ts, query_id, session_id, stage, decision, rules_json, policy_version)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		event.EventID,
		event.Timestamp.UTC().Format(time.RFC3339Nano),
		event.QueryID,
		event.SessionID,
		string(event.Stage),
		event.Decision,
		string(rules),
		event.PolicyVersion,
	)
	return err
}

func (s *Store) ArchivePolicy(ctx context.Context, record audit.PolicyRecord) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO policy_versions (version, created_at, config_yaml) VALUES (?, ?, ?)
ON CONFLICT(version) DO NOTHING`,
		record.Version,
		record.CreatedAt.UTC().Format(time.RFC3339Nano),
		string(record.ConfigYAML),
	)
	return err
}

func (s *Store) ListByQuery(ctx context.Context, queryID string) ([]types.AuditEvent, error) {
	return s.query(ctx, `WHERE query_id = ?`, queryID)
}

func (s *Store) ListBySession(ctx context.Context, sessionID string) ([]types.AuditEvent, error) {
	return s.query(ctx, `WHERE session_id = ?`, sessionID)
}

func (s *Store) ListByTimeRange(ctx context.Context, from, to time.Time) ([]types.AuditEvent, error) {
	return s.query(ctx, `WHERE ts >= ? AND ts <= ?`,
		from.UTC().Format(time.RFC3339Nano), to.UTC().Format(time.RFC3339Nano))
}

func (s *Store) ListByPolicyVersion(ctx context.Context, version int) ([]types.AuditEvent, error) {
	return s.query(ctx, `WHERE policy_version = ?`, version)
}

func (s *Store) PolicyVersions(ctx context.Context) ([]audit.PolicyRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT version, created_at, config_yaml FROM policy_versions ORDER BY version ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []audit.PolicyRecord{}
	for rows.Next() {
		var rec audit.PolicyRecord
		var createdAt, configYAML string
		if err := rows.Scan(&rec.Version, &createdAt, &configYAML); err != nil {
			return nil, err
		}
		rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		rec.ConfigYAML = []byte(configYAML)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) GetPolicy(ctx context.Context, version int) (audit.PolicyRecord, bool) {
	var rec audit.PolicyRecord
	var createdAt, configYAML string
	row := s.db.QueryRowContext(ctx,
		`SELECT version, created_at, config_yaml FROM policy_versions WHERE version = ?`, version)
	if err := row.Scan(&rec.Version, &createdAt, &configYAML); err != nil {
		return audit.PolicyRecord{}, false
	}
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	rec.ConfigYAML = []byte(configYAML)
	return rec, true
}

func (s *Store) query(ctx context.Context, where string, args ...any) ([]types.AuditEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT event_id, ts, query_id, session_id, stage, decision, rules_json, policy_version
FROM audit_events `+where+` ORDER BY ts ASC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []types.AuditEvent{}
	for rows.Next() {
		var e types.AuditEvent
		var ts, stage, rules string
		if err := rows.Scan(&e.EventID, &ts, &e.QueryID, &e.SessionID, &stage, &e.Decision, &rules, &e.PolicyVersion); err != nil {
			return nil, err
		}
		e.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		e.Stage = types.Stage(stage)
		if err := json.Unmarshal([]byte(rules), &e.Rules); err != nil {
			e.Rules = nil
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

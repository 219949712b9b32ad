package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"leadgate/internal/lead"
	"leadgate/pkg/platform/sentinel"
	txcontext "leadgate/pkg/platform/tx"
)

// Postgres implements Store on PostgreSQL. Multi-write units share a SQL
// transaction carried through context by pkg/platform/tx.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Postgres) q(ctx context.Context) querier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *Postgres) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return txcontext.Run(ctx, s.db, fn)
}

// Migrate creates the schema if absent. Idempotent; run at startup.
func (s *Postgres) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS leads (
			id UUID PRIMARY KEY,
			organization_name TEXT NOT NULL,
			contact_name TEXT NOT NULL,
			contact_email TEXT NOT NULL,
			team_size INT NOT NULL,
			organizational_scope TEXT NOT NULL,
			industry TEXT NOT NULL,
			challenge_category TEXT NOT NULL,
			has_sample_report BOOLEAN NOT NULL DEFAULT FALSE,
			source_ip TEXT NOT NULL DEFAULT '',
			qualification_score INT NOT NULL,
			priority_tier TEXT NOT NULL,
			score_breakdown JSONB NOT NULL DEFAULT '{}',
			status TEXT NOT NULL,
			assigned_to TEXT,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_leads_status ON leads (status);
		CREATE INDEX IF NOT EXISTS idx_leads_tier ON leads (priority_tier);

		CREATE TABLE IF NOT EXISTS lead_activities (
			id UUID PRIMARY KEY,
			lead_id UUID NOT NULL REFERENCES leads (id),
			type TEXT NOT NULL,
			payload JSONB,
			actor TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_lead_activities_lead ON lead_activities (lead_id, created_at DESC);

		CREATE TABLE IF NOT EXISTS alignment_calls (
			id UUID PRIMARY KEY,
			lead_id UUID NOT NULL REFERENCES leads (id),
			scheduled_at TIMESTAMPTZ NOT NULL,
			notes TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_alignment_calls_scheduled ON alignment_calls (scheduled_at);
	`)
	if err != nil {
		return fmt.Errorf("migrate lead schema: %w", err)
	}
	return nil
}

const leadColumns = `id, organization_name, contact_name, contact_email, team_size,
	organizational_scope, industry, challenge_category, has_sample_report, source_ip,
	qualification_score, priority_tier, score_breakdown, status, assigned_to,
	created_at, updated_at`

func (s *Postgres) CreateLead(ctx context.Context, l *lead.Lead) error {
	breakdown, err := json.Marshal(l.Breakdown)
	if err != nil {
		return fmt.Errorf("marshal breakdown: %w", err)
	}

	_, err = s.q(ctx).ExecContext(ctx, `
		INSERT INTO leads (`+leadColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		l.ID, l.OrganizationName, l.ContactName, l.ContactEmail, l.TeamSize,
		l.Scope, l.Industry, l.Challenge, l.HasSampleReport, l.SourceIP,
		l.QualificationScore, l.PriorityTier, breakdown, l.Status,
		nullString(l.AssignedTo), l.CreatedAt, l.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert lead: %w", err)
	}
	return nil
}

func (s *Postgres) GetLead(ctx context.Context, id uuid.UUID) (*lead.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE id = $1`
	// Inside a transaction the read anchors a read-then-write unit: lock the
	// row so a concurrent transition cannot validate against a stale status
	// and commit a status change that never effectively held.
	if _, inTx := txcontext.From(ctx); inTx {
		query += " FOR UPDATE"
	}
	row := s.q(ctx).QueryRowContext(ctx, query, id)
	return scanLead(row)
}

func (s *Postgres) UpdateLead(ctx context.Context, l *lead.Lead) error {
	// Score, tier, breakdown, and created_at are immutable by design; only the
	// mutable columns are written.
	res, err := s.q(ctx).ExecContext(ctx, `
		UPDATE leads SET status = $2, assigned_to = $3, updated_at = $4
		WHERE id = $1`,
		l.ID, l.Status, nullString(l.AssignedTo), l.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update lead: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update lead rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) ListLeads(ctx context.Context, filter ListFilter, sortBy Sort) ([]*lead.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads`
	var (
		conds []string
		args  []any
	)
	addCond := func(column string, value any) {
		args = append(args, value)
		conds = append(conds, column+" = $"+strconv.Itoa(len(args)))
	}
	if filter.Status != "" {
		addCond("status", filter.Status)
	}
	if filter.Tier != "" {
		addCond("priority_tier", filter.Tier)
	}
	if filter.Industry != "" {
		addCond("industry", filter.Industry)
	}
	if filter.AssignedTo != "" {
		addCond("assigned_to", filter.AssignedTo)
	}
	if !filter.CreatedAfter.IsZero() {
		args = append(args, filter.CreatedAfter)
		conds = append(conds, "created_at > $"+strconv.Itoa(len(args)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	switch sortBy {
	case SortScore:
		query += " ORDER BY qualification_score DESC, created_at DESC"
	default:
		query += " ORDER BY created_at DESC"
	}

	rows, err := s.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()

	var out []*lead.Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *Postgres) AppendActivity(ctx context.Context, entry *lead.ActivityEntry) error {
	payload, err := json.Marshal(entry.Payload)
	if err != nil {
		return fmt.Errorf("marshal activity payload: %w", err)
	}

	res, err := s.q(ctx).ExecContext(ctx, `
		INSERT INTO lead_activities (id, lead_id, type, payload, actor, created_at)
		SELECT $1, $2, $3, $4, $5, $6
		WHERE EXISTS (SELECT 1 FROM leads WHERE id = $2)`,
		entry.ID, entry.LeadID, entry.Type, payload, entry.Actor, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append activity: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("append activity rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) ListActivities(ctx context.Context, leadID uuid.UUID) ([]*lead.ActivityEntry, error) {
	rows, err := s.q(ctx).QueryContext(ctx, `
		SELECT id, lead_id, type, payload, actor, created_at
		FROM lead_activities WHERE lead_id = $1
		ORDER BY created_at DESC`, leadID)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()

	var out []*lead.ActivityEntry
	for rows.Next() {
		var (
			entry   lead.ActivityEntry
			payload []byte
		)
		if err := rows.Scan(&entry.ID, &entry.LeadID, &entry.Type, &payload, &entry.Actor, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &entry.Payload); err != nil {
				return nil, fmt.Errorf("unmarshal activity payload: %w", err)
			}
		}
		out = append(out, &entry)
	}
	return out, rows.Err()
}

func (s *Postgres) CreateCall(ctx context.Context, call *lead.AlignmentCall) error {
	res, err := s.q(ctx).ExecContext(ctx, `
		INSERT INTO alignment_calls (id, lead_id, scheduled_at, notes, created_at)
		SELECT $1, $2, $3, $4, $5
		WHERE EXISTS (SELECT 1 FROM leads WHERE id = $2)`,
		call.ID, call.LeadID, call.ScheduledAt, call.Notes, call.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create alignment call: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("create alignment call rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) ListCallsBetween(ctx context.Context, from, to time.Time) ([]*lead.AlignmentCall, error) {
	rows, err := s.q(ctx).QueryContext(ctx, `
		SELECT id, lead_id, scheduled_at, notes, created_at
		FROM alignment_calls
		WHERE scheduled_at >= $1 AND scheduled_at <= $2
		ORDER BY scheduled_at ASC`, from, to)
	if err != nil {
		return nil, fmt.Errorf("list alignment calls: %w", err)
	}
	defer rows.Close()

	var out []*lead.AlignmentCall
	for rows.Next() {
		var call lead.AlignmentCall
		if err := rows.Scan(&call.ID, &call.LeadID, &call.ScheduledAt, &call.Notes, &call.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan alignment call: %w", err)
		}
		out = append(out, &call)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLead(row rowScanner) (*lead.Lead, error) {
	var (
		l          lead.Lead
		breakdown  []byte
		assignedTo sql.NullString
	)
	err := row.Scan(
		&l.ID, &l.OrganizationName, &l.ContactName, &l.ContactEmail, &l.TeamSize,
		&l.Scope, &l.Industry, &l.Challenge, &l.HasSampleReport, &l.SourceIP,
		&l.QualificationScore, &l.PriorityTier, &breakdown, &l.Status,
		&assignedTo, &l.CreatedAt, &l.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan lead: %w", err)
	}
	if len(breakdown) > 0 {
		if err := json.Unmarshal(breakdown, &l.Breakdown); err != nil {
			return nil, fmt.Errorf("unmarshal breakdown: %w", err)
		}
	}
	l.AssignedTo = assignedTo.String
	return &l, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

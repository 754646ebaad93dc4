// Package postgres implements leads.Store on PostgreSQL through sqlx.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"elpbot/internal/leads"
)

// Migrations holds the schema files applied by golang-migrate at startup.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory inside Migrations.
const MigrationsDir = "migrations"

const opTimeout = 5 * time.Second

const (
	insertLeadSQL = `INSERT INTO leads (user_id, username, name, contact, contact_type, area, term, status, notes)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING id`

	insertActivitySQL = `INSERT INTO user_activity (user_id, action, details) VALUES ($1, $2, $3)`

	statsSQL = `SELECT
    COUNT(*) AS total_leads,
    COUNT(CASE WHEN created_at::date = CURRENT_DATE THEN 1 END) AS today_leads,
    COUNT(CASE WHEN status = 'new' THEN 1 END) AS new_leads,
    COUNT(CASE WHEN status = 'contacted' THEN 1 END) AS contacted_leads
FROM leads`

	recentLeadsSQL = `SELECT id, user_id, username, name, contact, contact_type, area, term, status, created_at, notes
FROM leads
ORDER BY created_at DESC, id DESC
LIMIT $1`
)

// Store runs every operation on its own pooled connection, released on every exit path.
type Store struct {
	db *sqlx.DB
}

// New wraps an open pool.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) conn(ctx context.Context) (*sqlx.Conn, context.CancelFunc, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	conn, err := s.db.Connx(ctx)
	if err != nil {
		cancel()
		return nil, nil, fmt.Errorf("acquire connection: %w", err)
	}
	return conn, cancel, nil
}

// EnsureSchema executes the up migrations directly. Every statement is idempotent,
// so this is safe against a schema created by golang-migrate or by hand.
func (s *Store) EnsureSchema(ctx context.Context) error {
	stmts, err := upStatements(Migrations, MigrationsDir)
	if err != nil {
		return err
	}
	conn, cancel, err := s.conn(ctx)
	if err != nil {
		return err
	}
	defer cancel()
	defer conn.Close()

	for _, stmt := range stmts {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// InsertLead inserts the lead and returns the id assigned by the sequence.
func (s *Store) InsertLead(ctx context.Context, lead leads.Lead) (int64, error) {
	conn, cancel, err := s.conn(ctx)
	if err != nil {
		return 0, err
	}
	defer cancel()
	defer conn.Close()

	status := lead.Status
	if status == "" {
		status = leads.StatusNew
	}
	var id int64
	err = conn.QueryRowxContext(ctx, insertLeadSQL,
		lead.UserID,
		nullString(fit(lead.Username, 100)),
		fit(lead.Name, 100),
		fit(lead.Contact, 100),
		string(lead.ContactKind),
		fit(lead.Area, 50),
		fit(lead.Term, 50),
		string(status),
		nullString(lead.Notes),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert lead: %w", err)
	}
	return id, nil
}

// InsertActivity appends one activity row.
func (s *Store) InsertActivity(ctx context.Context, ev leads.ActivityEvent) error {
	conn, cancel, err := s.conn(ctx)
	if err != nil {
		return err
	}
	defer cancel()
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, insertActivitySQL, ev.UserID, fit(ev.Action, 50), nullString(ev.Details)); err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

// AggregateStats counts leads in total, created today, and per status.
func (s *Store) AggregateStats(ctx context.Context) (leads.Stats, error) {
	conn, cancel, err := s.conn(ctx)
	if err != nil {
		return leads.Stats{}, err
	}
	defer cancel()
	defer conn.Close()

	var row struct {
		Total     int `db:"total_leads"`
		Today     int `db:"today_leads"`
		New       int `db:"new_leads"`
		Contacted int `db:"contacted_leads"`
	}
	if err := conn.QueryRowxContext(ctx, statsSQL).StructScan(&row); err != nil {
		return leads.Stats{}, fmt.Errorf("aggregate stats: %w", err)
	}
	return leads.Stats{Total: row.Total, Today: row.Today, New: row.New, Contacted: row.Contacted}, nil
}

type leadRow struct {
	ID          int64          `db:"id"`
	UserID      sql.NullInt64  `db:"user_id"`
	Username    sql.NullString `db:"username"`
	Name        sql.NullString `db:"name"`
	Contact     sql.NullString `db:"contact"`
	ContactType sql.NullString `db:"contact_type"`
	Area        sql.NullString `db:"area"`
	Term        sql.NullString `db:"term"`
	Status      sql.NullString `db:"status"`
	CreatedAt   sql.NullTime   `db:"created_at"`
	Notes       sql.NullString `db:"notes"`
}

func (r leadRow) toLead() leads.Lead {
	kind := leads.ContactKind(r.ContactType.String)
	if kind == "" {
		kind = leads.ContactUnspecified
	}
	status := leads.Status(r.Status.String)
	if status == "" {
		status = leads.StatusNew
	}
	return leads.Lead{
		ID:          r.ID,
		UserID:      r.UserID.Int64,
		Username:    r.Username.String,
		Name:        r.Name.String,
		Contact:     r.Contact.String,
		ContactKind: kind,
		Area:        r.Area.String,
		Term:        r.Term.String,
		Status:      status,
		CreatedAt:   r.CreatedAt.Time,
		Notes:       r.Notes.String,
	}
}

// RecentLeads returns up to limit leads, newest first.
func (s *Store) RecentLeads(ctx context.Context, limit int) ([]leads.Lead, error) {
	conn, cancel, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()
	defer conn.Close()

	var rows []leadRow
	if err := conn.SelectContext(ctx, &rows, recentLeadsSQL, limit); err != nil {
		return nil, fmt.Errorf("recent leads: %w", err)
	}
	out := make([]leads.Lead, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toLead())
	}
	return out, nil
}

// Close closes the pool.
func (s *Store) Close() error {
	return s.db.Close()
}

func nullString(s string) sql.NullString {
	s = strings.TrimSpace(s)
	return sql.NullString{String: s, Valid: s != ""}
}

// fit cuts s to the VARCHAR width n, counted in characters as Postgres does.
func fit(s string, n int) string {
	if r := []rune(s); len(r) > n {
		return string(r[:n])
	}
	return s
}

// upStatements reads the *.up.sql files of dir in version order.
func upStatements(fsys fs.FS, dir string) ([]string, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".up.sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	stmts := make([]string, 0, len(names))
	for _, name := range names {
		body, err := fs.ReadFile(fsys, dir+"/"+name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		stmts = append(stmts, string(body))
	}
	return stmts, nil
}

var _ leads.Store = (*Store)(nil)

package repository

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/okian/vmatch/internal/domain/model"
	"github.com/okian/vmatch/pkg/metrics"
)

// Supported SQL drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// SQLOption tunes the connection pool of a SQLStore.
type SQLOption func(*sqlSettings)

type sqlSettings struct {
	maxOpenConns    int
	maxIdleConns    int
	connMaxLifetime time.Duration
}

// WithMaxOpenConns caps open connections. Ignored for sqlite, which allows a single writer.
func WithMaxOpenConns(n int) SQLOption {
	return func(s *sqlSettings) {
		if n > 0 {
			s.maxOpenConns = n
		}
	}
}

// WithMaxIdleConns caps idle connections.
func WithMaxIdleConns(n int) SQLOption {
	return func(s *sqlSettings) {
		if n > 0 {
			s.maxIdleConns = n
		}
	}
}

// WithConnMaxLifetime bounds how long a connection is reused.
func WithConnMaxLifetime(d time.Duration) SQLOption {
	return func(s *sqlSettings) {
		if d > 0 {
			s.connMaxLifetime = d
		}
	}
}

// SQLStore is a Store backed by postgres or sqlite. Nested values such as
// skills and locations are kept as JSON text columns.
type SQLStore struct {
	db     *sql.DB
	driver string
}

var _ Store = (*SQLStore)(nil)

// OpenSQL connects to the database and applies the bootstrap schema.
func OpenSQL(ctx context.Context, driver, dsn string, opts ...SQLOption) (*SQLStore, error) {
	settings := sqlSettings{maxOpenConns: 25, maxIdleConns: 5, connMaxLifetime: 5 * time.Minute}
	for _, opt := range opts {
		opt(&settings)
	}

	var (
		db  *sql.DB
		err error
	)
	switch driver {
	case DriverPostgres:
		db, err = sql.Open("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres: %w", err)
		}
		db.SetMaxOpenConns(settings.maxOpenConns)
		db.SetMaxIdleConns(settings.maxIdleConns)
		db.SetConnMaxLifetime(settings.connMaxLifetime)
		db.SetConnMaxIdleTime(settings.connMaxLifetime)
	case DriverSQLite:
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		if !strings.Contains(dsn, "?") {
			dsn += "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=ON"
		}
		db, err = sql.Open("sqlite3", dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite: %w", err)
		}
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}

	s := NewSQLStore(db, driver)
	if err := s.bootstrap(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLStore wraps an open handle without touching the schema.
func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver}
}

func (s *SQLStore) bootstrap(ctx context.Context) error {
	ddl, err := schemaFS.ReadFile("schema/" + s.driver + ".sql")
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, string(ddl)); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// rebind rewrites ? placeholders into the driver's syntax.
func (s *SQLStore) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 16)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func observe(op string, start time.Time) {
	metrics.RecordStoreQueryLatency(op, float64(time.Since(start).Milliseconds()))
}

const volunteerColumns = `id, user_id, name, email, skills, interests, location, availability_status,
	hours_per_week, total_hours, impact_score, created_at, updated_at`

const projectColumns = `id, organization_id, title, description, category, tags, skills, location,
	hours_per_week, duration_weeks, capacity, applied_count, status, contact_email, created_at, updated_at`

const applicationColumns = `id, project_id, volunteer_id, status, message, created_at, updated_at`

// GetVolunteer implements Store.
func (s *SQLStore) GetVolunteer(ctx context.Context, id string) (model.VolunteerProfile, error) {
	defer observe("get_volunteer", time.Now())
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+volunteerColumns+` FROM volunteers WHERE id = ?`), id)
	v, err := scanVolunteer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.VolunteerProfile{}, fmt.Errorf("volunteer %s: %w", id, ErrNotFound)
	}
	return v, err
}

// SaveVolunteer implements Store.
func (s *SQLStore) SaveVolunteer(ctx context.Context, v model.VolunteerProfile) error { //nolint:gocritic // hugeParam: mirrors Store
	defer observe("save_volunteer", time.Now())
	skills, interests, loc, err := encodeVolunteer(v)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, s.rebind(`INSERT INTO volunteers (`+volunteerColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			user_id = excluded.user_id,
			name = excluded.name,
			email = excluded.email,
			skills = excluded.skills,
			interests = excluded.interests,
			location = excluded.location,
			availability_status = excluded.availability_status,
			hours_per_week = excluded.hours_per_week,
			total_hours = excluded.total_hours,
			impact_score = excluded.impact_score,
			updated_at = excluded.updated_at`),
		v.ID, v.UserID, v.Name, v.Email, skills, interests, loc, string(v.Availability.Status),
		v.Availability.HoursPerWeek, v.TotalHours, v.ImpactScore, v.CreatedAt.UTC(), v.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("save volunteer %s: %w", v.ID, err)
	}
	return nil
}

// ListAvailableVolunteers implements Store.
func (s *SQLStore) ListAvailableVolunteers(ctx context.Context) ([]model.VolunteerProfile, error) {
	defer observe("list_available_volunteers", time.Now())
	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT `+volunteerColumns+` FROM volunteers
		WHERE availability_status = ? ORDER BY id`), string(model.Available))
	if err != nil {
		return nil, fmt.Errorf("list volunteers: %w", err)
	}
	defer rows.Close()

	out := make([]model.VolunteerProfile, 0)
	for rows.Next() {
		v, err := scanVolunteer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// GetProject implements Store.
func (s *SQLStore) GetProject(ctx context.Context, id string) (model.Project, error) {
	defer observe("get_project", time.Now())
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+projectColumns+` FROM projects WHERE id = ?`), id)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Project{}, fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	return p, err
}

// CreateProject implements Store.
func (s *SQLStore) CreateProject(ctx context.Context, p model.Project) error { //nolint:gocritic // hugeParam: mirrors Store
	defer observe("create_project", time.Now())
	tags, skills, loc, err := encodeProject(p)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, s.rebind(`INSERT INTO projects (`+projectColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		p.ID, p.OrganizationID, p.Title, p.Description, p.Category, tags, skills, loc,
		p.HoursPerWeek, p.DurationWeeks, p.Capacity, p.AppliedCount, string(p.Status), p.ContactEmail,
		p.CreatedAt.UTC(), p.UpdatedAt.UTC())
	if isUniqueViolation(err) {
		return fmt.Errorf("project %s: %w", p.ID, ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("create project %s: %w", p.ID, err)
	}
	return nil
}

// UpdateProjectStatus implements Store.
func (s *SQLStore) UpdateProjectStatus(ctx context.Context, id string, status model.ProjectStatus, at time.Time) error {
	defer observe("update_project_status", time.Now())
	res, err := s.db.ExecContext(ctx, s.rebind(`UPDATE projects SET status = ?, updated_at = ? WHERE id = ?`),
		string(status), at.UTC(), id)
	if err != nil {
		return fmt.Errorf("update project %s: %w", id, err)
	}
	return requireRow(res, "project", id)
}

// ListActiveProjects implements Store.
func (s *SQLStore) ListActiveProjects(ctx context.Context) ([]model.Project, error) {
	defer observe("list_active_projects", time.Now())
	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT `+projectColumns+` FROM projects
		WHERE status = ? ORDER BY id`), string(model.ProjectActive))
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	out := make([]model.Project, 0)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CreateApplication implements Store. The capacity check and the insert share a transaction.
func (s *SQLStore) CreateApplication(ctx context.Context, a model.Application) error { //nolint:gocritic // hugeParam: mirrors Store
	defer observe("create_application", time.Now())
	return s.transaction(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, s.rebind(`UPDATE projects SET applied_count = applied_count + 1
			WHERE id = ? AND (capacity = 0 OR applied_count < capacity)`), a.ProjectID)
		if err != nil {
			return fmt.Errorf("reserve slot on %s: %w", a.ProjectID, err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			var exists int
			if err := tx.QueryRowContext(ctx, s.rebind(`SELECT COUNT(*) FROM projects WHERE id = ?`), a.ProjectID).Scan(&exists); err != nil {
				return fmt.Errorf("lookup project %s: %w", a.ProjectID, err)
			}
			if exists == 0 {
				return fmt.Errorf("project %s: %w", a.ProjectID, ErrNotFound)
			}
			return fmt.Errorf("project %s: %w", a.ProjectID, ErrProjectFull)
		}

		_, err = tx.ExecContext(ctx, s.rebind(`INSERT INTO applications (`+applicationColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?)`),
			a.ID, a.ProjectID, a.VolunteerID, string(a.Status), a.Message, a.CreatedAt.UTC(), a.UpdatedAt.UTC())
		if isUniqueViolation(err) {
			return fmt.Errorf("application for %s|%s: %w", a.ProjectID, a.VolunteerID, ErrDuplicate)
		}
		if err != nil {
			return fmt.Errorf("insert application %s: %w", a.ID, err)
		}
		return nil
	})
}

// GetApplication implements Store.
func (s *SQLStore) GetApplication(ctx context.Context, id string) (model.Application, error) {
	defer observe("get_application", time.Now())
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+applicationColumns+` FROM applications WHERE id = ?`), id)
	a, err := scanApplication(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Application{}, fmt.Errorf("application %s: %w", id, ErrNotFound)
	}
	return a, err
}

// TransitionApplication implements Store.
func (s *SQLStore) TransitionApplication(ctx context.Context, id string, from, to model.ApplicationStatus, at time.Time) error {
	defer observe("transition_application", time.Now())
	res, err := s.db.ExecContext(ctx, s.rebind(`UPDATE applications SET status = ?, updated_at = ?
		WHERE id = ? AND status = ?`), string(to), at.UTC(), id, string(from))
	if err != nil {
		return fmt.Errorf("update application %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	if _, err := s.GetApplication(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("application %s: %w", id, ErrStaleStatus)
}

// ListApplicationsByVolunteer implements Store.
func (s *SQLStore) ListApplicationsByVolunteer(ctx context.Context, volunteerID string) ([]model.Application, error) {
	defer observe("list_applications_by_volunteer", time.Now())
	return s.listApplications(ctx, `volunteer_id`, volunteerID)
}

// ListApplicationsByProject implements Store.
func (s *SQLStore) ListApplicationsByProject(ctx context.Context, projectID string) ([]model.Application, error) {
	defer observe("list_applications_by_project", time.Now())
	return s.listApplications(ctx, `project_id`, projectID)
}

func (s *SQLStore) listApplications(ctx context.Context, column, id string) ([]model.Application, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT `+applicationColumns+` FROM applications
		WHERE `+column+` = ? ORDER BY created_at, id`), id)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	defer rows.Close()

	out := make([]model.Application, 0)
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Counts implements Store.
func (s *SQLStore) Counts(ctx context.Context) (Counts, error) {
	defer observe("counts", time.Now())
	var c Counts
	err := s.db.QueryRowContext(ctx, `SELECT
		(SELECT COUNT(*) FROM volunteers),
		(SELECT COUNT(*) FROM projects),
		(SELECT COUNT(*) FROM applications)`).Scan(&c.Volunteers, &c.Projects, &c.Applications)
	if err != nil {
		return Counts{}, fmt.Errorf("count catalog: %w", err)
	}
	return c, nil
}

// Ping implements Store.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database handle.
func (s *SQLStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLStore) transaction(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func requireRow(res sql.Result, what, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", what, id, ErrNotFound)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

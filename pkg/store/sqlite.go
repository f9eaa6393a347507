package store

import (
	"context"
	"database/sql"
	"time"

	_ "modernc.org/sqlite"

	"github.com/matzehuels/lanemap/pkg/errors"
	"github.com/matzehuels/lanemap/pkg/process"
)

// timeLayout is fixed-width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLite is a Store backed by a SQLite database through database/sql.
type SQLite struct {
	db    *sql.DB
	actor string
}

var _ Store = (*SQLite)(nil)

// OpenSQLite opens (or creates) the database at dsn with the
// modernc.org/sqlite driver. ":memory:" gives a private in-memory database.
func OpenSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "open sqlite %s", dsn)
	}
	// Every connection to :memory: is a separate database.
	if dsn == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	s, err := NewSQLite(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLite initializes the schema in db and returns a store using it. The
// caller must have imported a SQLite driver.
func NewSQLite(db *sql.DB) (*SQLite, error) {
	s := &SQLite{db: db}
	if err := s.initSchema(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "init schema")
	}
	return s, nil
}

// SetActor sets the name recorded in audit entries and modified_by.
func (s *SQLite) SetActor(actor string) { s.actor = actor }

func (s *SQLite) actorName() string {
	if s.actor == "" {
		return DefaultActor
	}
	return s.actor
}

func (s *SQLite) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS workflows (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			workflow_name TEXT NOT NULL,
			description TEXT
		);
		CREATE TABLE IF NOT EXISTS activities (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			workflow_id INTEGER NOT NULL REFERENCES workflows(id),
			activity_name TEXT,
			activity_type TEXT NOT NULL DEFAULT 'task',
			grid_location TEXT,
			connections TEXT,
			status TEXT,
			modified_at TEXT,
			modified_by TEXT
		);
		CREATE INDEX IF NOT EXISTS activities_workflow ON activities(workflow_id, grid_location);
		CREATE TABLE IF NOT EXISTS swimlane_config (
			workflow_id INTEGER NOT NULL,
			swimlane_letter TEXT NOT NULL,
			swimlane_name TEXT,
			PRIMARY KEY (workflow_id, swimlane_letter)
		);
		CREATE TABLE IF NOT EXISTS activity_audit_log (
			id TEXT PRIMARY KEY,
			activity_id INTEGER NOT NULL,
			action TEXT NOT NULL,
			changed_by TEXT,
			changes TEXT,
			changed_at TEXT NOT NULL
		);`,
	)
	return err
}

// Workflows lists rows of the workflows table.
func (s *SQLite) Workflows(ctx context.Context) ([]process.Workflow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, workflow_name, COALESCE(description, '')
		FROM workflows
		ORDER BY workflow_name, id`)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "list workflows")
	}
	defer rows.Close()

	out := []process.Workflow{}
	for rows.Next() {
		var wf process.Workflow
		if err := rows.Scan(&wf.ID, &wf.Name, &wf.Description); err != nil {
			return nil, errors.Wrap(errors.ErrCodeStorage, err, "scan workflow")
		}
		out = append(out, wf)
	}
	return out, rows.Err()
}

// CreateWorkflow inserts a workflow.
func (s *SQLite) CreateWorkflow(ctx context.Context, name, description string) (process.Workflow, error) {
	name, description, err := normalizeWorkflow(name, description)
	if err != nil {
		return process.Workflow{}, err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO workflows (workflow_name, description) VALUES (?, ?)`,
		name, nullString(description))
	if err != nil {
		return process.Workflow{}, errors.Wrap(errors.ErrCodeStorage, err, "create workflow")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return process.Workflow{}, errors.Wrap(errors.ErrCodeStorage, err, "create workflow")
	}
	return process.Workflow{ID: id, Name: name, Description: description}, nil
}

func (s *SQLite) workflow(ctx context.Context, id int64) (process.Workflow, error) {
	wf := process.Workflow{ID: id}
	err := s.db.QueryRowContext(ctx,
		`SELECT workflow_name, COALESCE(description, '') FROM workflows WHERE id = ?`, id,
	).Scan(&wf.Name, &wf.Description)
	if err == sql.ErrNoRows {
		return wf, workflowNotFound(id)
	}
	if err != nil {
		return wf, errors.Wrap(errors.ErrCodeStorage, err, "load workflow %d", id)
	}
	return wf, nil
}

// Snapshot reads a workflow with its swimlanes and activities.
func (s *SQLite) Snapshot(ctx context.Context, workflowID int64) (process.Snapshot, []process.Issue, error) {
	wf, err := s.workflow(ctx, workflowID)
	if err != nil {
		return process.Snapshot{}, nil, err
	}
	snap := process.Snapshot{Workflow: wf, Steps: []process.Step{}}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, COALESCE(activity_name, ''), activity_type, COALESCE(grid_location, ''),
		       COALESCE(connections, ''), COALESCE(status, '')
		FROM activities
		WHERE workflow_id = ?
		ORDER BY grid_location, id`, workflowID)
	if err != nil {
		return process.Snapshot{}, nil, errors.Wrap(errors.ErrCodeStorage, err, "load steps")
	}
	defer rows.Close()

	var issues []process.Issue
	for rows.Next() {
		var (
			st          process.Step
			kind, conns string
		)
		if err := rows.Scan(&st.ID, &st.Name, &kind, &st.Address, &conns, &st.Status); err != nil {
			return process.Snapshot{}, nil, errors.Wrap(errors.ErrCodeStorage, err, "scan step")
		}
		st.Kind = process.ParseKind(kind)
		if st.Connections, err = process.DecodeConnectionString(conns); err != nil {
			issues = append(issues, process.Issue{StepID: st.ID, Err: err})
		}
		snap.Steps = append(snap.Steps, st)
	}
	if err := rows.Err(); err != nil {
		return process.Snapshot{}, nil, errors.Wrap(errors.ErrCodeStorage, err, "load steps")
	}
	rows.Close()

	snap.Rows, err = s.rows(ctx, workflowID)
	if err != nil {
		return process.Snapshot{}, nil, err
	}
	return snap, issues, nil
}

func (s *SQLite) rows(ctx context.Context, workflowID int64) ([]process.Row, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT swimlane_letter, COALESCE(swimlane_name, '')
		FROM swimlane_config
		WHERE workflow_id = ?
		ORDER BY swimlane_letter`, workflowID)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "load rows")
	}
	defer rows.Close()

	var out []process.Row
	for rows.Next() {
		var r process.Row
		if err := rows.Scan(&r.Letter, &r.Name); err != nil {
			return nil, errors.Wrap(errors.ErrCodeStorage, err, "scan row")
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CreateStep inserts an activity.
func (s *SQLite) CreateStep(ctx context.Context, workflowID int64, step process.Step) (process.Step, error) {
	if _, err := s.workflow(ctx, workflowID); err != nil {
		return process.Step{}, err
	}
	step = prepareStep(step)
	conns, err := process.EncodeConnections(step.Connections)
	if err != nil {
		return process.Step{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "encode connections")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return process.Step{}, errors.Wrap(errors.ErrCodeStorage, err, "begin")
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO activities (workflow_id, activity_name, activity_type, grid_location, connections, status, modified_at, modified_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		workflowID, step.Name, string(step.Kind), nullString(step.Address), nullString(conns),
		nullString(step.Status), now(), s.actorName())
	if err != nil {
		return process.Step{}, errors.Wrap(errors.ErrCodeStorage, err, "create step")
	}
	if step.ID, err = res.LastInsertId(); err != nil {
		return process.Step{}, errors.Wrap(errors.ErrCodeStorage, err, "create step")
	}
	entry := newAuditEntry(step.ID, ActionCreate, s.actorName(), map[string]any{
		"name": step.Name, "grid_location": step.Address,
	})
	if err := insertAudit(ctx, tx, entry); err != nil {
		return process.Step{}, err
	}
	if err := tx.Commit(); err != nil {
		return process.Step{}, errors.Wrap(errors.ErrCodeStorage, err, "commit")
	}
	return step, nil
}

// UpdateStepAddress updates the activity and writes the audit row in one transaction.
func (s *SQLite) UpdateStepAddress(ctx context.Context, stepID int64, address string) (string, error) {
	norm, err := NormalizeAddress(address)
	if err != nil {
		return "", err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeStorage, err, "begin")
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE activities SET grid_location = ?, modified_at = ?, modified_by = ? WHERE id = ?`,
		norm, now(), s.actorName(), stepID)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeStorage, err, "update step %d", stepID)
	}
	if n, err := res.RowsAffected(); err != nil {
		return "", errors.Wrap(errors.ErrCodeStorage, err, "update step %d", stepID)
	} else if n == 0 {
		return "", stepNotFound(stepID)
	}

	entry := newAuditEntry(stepID, ActionUpdatePosition, s.actorName(), map[string]any{"grid_location": norm})
	if err := insertAudit(ctx, tx, entry); err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", errors.Wrap(errors.ErrCodeStorage, err, "commit")
	}
	return norm, nil
}

// DeleteStep deletes an activity.
func (s *SQLite) DeleteStep(ctx context.Context, stepID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "begin")
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM activities WHERE id = ?`, stepID)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "delete step %d", stepID)
	}
	if n, err := res.RowsAffected(); err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "delete step %d", stepID)
	} else if n == 0 {
		return stepNotFound(stepID)
	}
	if err := insertAudit(ctx, tx, newAuditEntry(stepID, ActionDelete, s.actorName(), nil)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "commit")
	}
	return nil
}

// SaveRow upserts a swimlane_config row.
func (s *SQLite) SaveRow(ctx context.Context, workflowID int64, row process.Row) (process.Row, error) {
	row, err := NormalizeRow(row)
	if err != nil {
		return process.Row{}, err
	}
	if _, err := s.workflow(ctx, workflowID); err != nil {
		return process.Row{}, err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO swimlane_config (workflow_id, swimlane_letter, swimlane_name)
		VALUES (?, ?, ?)
		ON CONFLICT (workflow_id, swimlane_letter) DO UPDATE SET swimlane_name = excluded.swimlane_name`,
		workflowID, row.Letter, row.Name)
	if err != nil {
		return process.Row{}, errors.Wrap(errors.ErrCodeStorage, err, "save row %s", row.Letter)
	}
	return row, nil
}

// Audit reads activity_audit_log rows for a step.
func (s *SQLite) Audit(ctx context.Context, stepID int64) ([]AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, activity_id, action, COALESCE(changed_by, ''), COALESCE(changes, ''), changed_at
		FROM activity_audit_log
		WHERE activity_id = ?
		ORDER BY changed_at, rowid`, stepID)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "load audit")
	}
	defer rows.Close()

	var out []AuditEntry
	for rows.Next() {
		var (
			e  AuditEntry
			at string
		)
		if err := rows.Scan(&e.ID, &e.StepID, &e.Action, &e.ChangedBy, &e.Changes, &at); err != nil {
			return nil, errors.Wrap(errors.ErrCodeStorage, err, "scan audit")
		}
		if e.At, err = time.Parse(timeLayout, at); err != nil {
			return nil, errors.Wrap(errors.ErrCodeStorage, err, "parse audit time")
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *SQLite) Close() error { return s.db.Close() }

func insertAudit(ctx context.Context, tx *sql.Tx, e AuditEntry) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO activity_audit_log (id, activity_id, action, changed_by, changes, changed_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.StepID, e.Action, e.ChangedBy, nullString(e.Changes), e.At.Format(timeLayout))
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "write audit entry")
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func now() string {
	return time.Now().UTC().Format(timeLayout)
}

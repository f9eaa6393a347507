package store

import (
	"cmp"
	"context"
	"encoding/json"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/lanemap/pkg/errors"
	"github.com/matzehuels/lanemap/pkg/grid"
	"github.com/matzehuels/lanemap/pkg/process"
)

// Audit actions.
const (
	ActionCreate         = "CREATE"
	ActionUpdatePosition = "UPDATE_POSITION"
	ActionDelete         = "DELETE"
)

// DefaultActor is recorded as the author of changes when none is set.
const DefaultActor = "app_user"

// Store is the persistence boundary for process maps.
type Store interface {
	// Workflows lists workflows ordered by name.
	Workflows(ctx context.Context) ([]process.Workflow, error)
	// CreateWorkflow adds a workflow and returns it with its id.
	CreateWorkflow(ctx context.Context, name, description string) (process.Workflow, error)
	// Snapshot loads every step and row of a workflow. Steps are ordered by
	// address. Malformed connection payloads are returned as issues.
	Snapshot(ctx context.Context, workflowID int64) (process.Snapshot, []process.Issue, error)
	// CreateStep adds a step to a workflow. The returned step carries its id.
	CreateStep(ctx context.Context, workflowID int64, step process.Step) (process.Step, error)
	// UpdateStepAddress validates and stores a new address for a step and
	// returns the normalized address.
	UpdateStepAddress(ctx context.Context, stepID int64, address string) (string, error)
	// DeleteStep removes a step.
	DeleteStep(ctx context.Context, stepID int64) error
	// SaveRow creates or renames a swimlane row.
	SaveRow(ctx context.Context, workflowID int64, row process.Row) (process.Row, error)
	// Audit returns the audit entries for a step, oldest first.
	Audit(ctx context.Context, stepID int64) ([]AuditEntry, error)
	Close() error
}

// AuditEntry records one change to a step.
type AuditEntry struct {
	ID        string    `json:"id" bson:"_id"`
	StepID    int64     `json:"stepId" bson:"step_id"`
	Action    string    `json:"action" bson:"action"`
	ChangedBy string    `json:"changedBy" bson:"changed_by"`
	Changes   string    `json:"changes,omitempty" bson:"changes,omitempty"` // JSON object
	At        time.Time `json:"at" bson:"at"`
}

func newAuditEntry(stepID int64, action, actor string, changes map[string]any) AuditEntry {
	if actor == "" {
		actor = DefaultActor
	}
	e := AuditEntry{
		ID:        uuid.NewString(),
		StepID:    stepID,
		Action:    action,
		ChangedBy: actor,
		At:        time.Now().UTC(),
	}
	if len(changes) > 0 {
		if data, err := json.Marshal(changes); err == nil {
			e.Changes = string(data)
		}
	}
	return e
}

// NormalizeAddress validates a user-supplied address and returns its
// canonical form.
func NormalizeAddress(address string) (string, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return "", errors.New(errors.ErrCodeInvalidInput, "grid location is required")
	}
	norm, err := grid.Normalize(address)
	if err != nil {
		if errors.Is(err, errors.ErrCodeUnsupportedRow) {
			return "", err
		}
		return "", errors.Wrap(errors.ErrCodeInvalidFormat, err,
			"invalid grid location format %q, expected A1, B2, etc.", address)
	}
	return norm, nil
}

// NormalizeRow validates a row and uppercases its letter.
func NormalizeRow(row process.Row) (process.Row, error) {
	row = process.RowRecord{Letter: row.Letter, Name: row.Name}.ToRow()
	if row.Letter == "" {
		return process.Row{}, errors.New(errors.ErrCodeInvalidInput, "letter is required")
	}
	if _, err := grid.RowIndex(row.Letter); err != nil {
		return process.Row{}, err
	}
	return row, nil
}

func normalizeWorkflow(name, description string) (string, string, error) {
	name = strings.TrimSpace(name)
	if err := errors.ValidateName("workflow", name); err != nil {
		return "", "", err
	}
	return name, strings.TrimSpace(description), nil
}

func prepareStep(st process.Step) process.Step {
	st.Name = strings.TrimSpace(st.Name)
	st.Kind = process.ParseKind(string(st.Kind))
	st.Address = strings.TrimSpace(st.Address)
	st.Connections = slices.Clone(st.Connections)
	return st
}

// sortSteps orders steps by address, then id, the way the editor lists them.
func sortSteps(steps []process.Step) {
	slices.SortStableFunc(steps, func(a, b process.Step) int {
		if c := cmp.Compare(a.Address, b.Address); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

func sortRows(rows []process.Row) {
	slices.SortFunc(rows, func(a, b process.Row) int { return cmp.Compare(a.Letter, b.Letter) })
}

func sortWorkflows(wfs []process.Workflow) {
	slices.SortStableFunc(wfs, func(a, b process.Workflow) int {
		if c := cmp.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

func stepNotFound(id int64) error {
	return errors.New(errors.ErrCodeStepNotFound, "step %d not found", id)
}

func workflowNotFound(id int64) error {
	return errors.New(errors.ErrCodeWorkflowNotFound, "workflow %d not found", id)
}

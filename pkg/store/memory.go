package store

import (
	"context"
	"slices"
	"sync"

	"github.com/matzehuels/lanemap/pkg/process"
)

// Memory is a Store backed by in-process maps. It is safe for concurrent
// use.
type Memory struct {
	mu        sync.RWMutex
	actor     string
	workflows map[int64]process.Workflow
	steps     map[int64]memStep
	rows      map[int64]map[string]process.Row
	audit     []AuditEntry
	nextWF    int64
	nextStep  int64
}

type memStep struct {
	workflowID int64
	step       process.Step
}

var _ Store = (*Memory)(nil)

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		workflows: make(map[int64]process.Workflow),
		steps:     make(map[int64]memStep),
		rows:      make(map[int64]map[string]process.Row),
	}
}

// SetActor sets the name recorded in audit entries.
func (m *Memory) SetActor(actor string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.actor = actor
}

// Put stores a complete snapshot, replacing any workflow with the same id.
// Step ids are kept; steps with id 0 get a fresh one.
func (m *Memory) Put(snap process.Snapshot) process.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	wf := snap.Workflow
	if wf.ID == 0 {
		m.nextWF++
		wf.ID = m.nextWF
	}
	m.nextWF = max(m.nextWF, wf.ID)
	m.workflows[wf.ID] = wf

	for id, s := range m.steps {
		if s.workflowID == wf.ID {
			delete(m.steps, id)
		}
	}
	out := process.Snapshot{Workflow: wf}
	for _, st := range snap.Steps {
		st = prepareStep(st)
		if st.ID == 0 {
			m.nextStep++
			st.ID = m.nextStep
		}
		m.nextStep = max(m.nextStep, st.ID)
		m.steps[st.ID] = memStep{workflowID: wf.ID, step: st}
		out.Steps = append(out.Steps, st)
	}

	rows := make(map[string]process.Row, len(snap.Rows))
	for _, r := range snap.Rows {
		if r, err := NormalizeRow(r); err == nil {
			rows[r.Letter] = r
			out.Rows = append(out.Rows, r)
		}
	}
	m.rows[wf.ID] = rows
	return out
}

// Workflows lists stored workflows ordered by name.
func (m *Memory) Workflows(ctx context.Context) ([]process.Workflow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]process.Workflow, 0, len(m.workflows))
	for _, wf := range m.workflows {
		out = append(out, wf)
	}
	sortWorkflows(out)
	return out, nil
}

// CreateWorkflow adds an empty workflow and assigns its id.
func (m *Memory) CreateWorkflow(ctx context.Context, name, description string) (process.Workflow, error) {
	name, description, err := normalizeWorkflow(name, description)
	if err != nil {
		return process.Workflow{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextWF++
	wf := process.Workflow{ID: m.nextWF, Name: name, Description: description}
	m.workflows[wf.ID] = wf
	return wf, nil
}

// Snapshot returns a copy of the workflow with its rows and steps.
func (m *Memory) Snapshot(ctx context.Context, workflowID int64) (process.Snapshot, []process.Issue, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	wf, ok := m.workflows[workflowID]
	if !ok {
		return process.Snapshot{}, nil, workflowNotFound(workflowID)
	}
	snap := process.Snapshot{Workflow: wf, Steps: []process.Step{}}
	for _, s := range m.steps {
		if s.workflowID == workflowID {
			st := s.step
			st.Connections = slices.Clone(st.Connections)
			snap.Steps = append(snap.Steps, st)
		}
	}
	for _, r := range m.rows[workflowID] {
		snap.Rows = append(snap.Rows, r)
	}
	sortSteps(snap.Steps)
	sortRows(snap.Rows)
	return snap, nil, nil
}

// CreateStep adds a step to a workflow and assigns its id.
func (m *Memory) CreateStep(ctx context.Context, workflowID int64, step process.Step) (process.Step, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.workflows[workflowID]; !ok {
		return process.Step{}, workflowNotFound(workflowID)
	}
	step = prepareStep(step)
	m.nextStep++
	step.ID = m.nextStep
	m.steps[step.ID] = memStep{workflowID: workflowID, step: step}
	m.audit = append(m.audit, newAuditEntry(step.ID, ActionCreate, m.actor, map[string]any{
		"name": step.Name, "grid_location": step.Address,
	}))
	return step, nil
}

// UpdateStepAddress moves a step and records an audit entry.
func (m *Memory) UpdateStepAddress(ctx context.Context, stepID int64, address string) (string, error) {
	norm, err := NormalizeAddress(address)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.steps[stepID]
	if !ok {
		return "", stepNotFound(stepID)
	}
	s.step.Address = norm
	m.steps[stepID] = s
	m.audit = append(m.audit, newAuditEntry(stepID, ActionUpdatePosition, m.actor, map[string]any{"grid_location": norm}))
	return norm, nil
}

// DeleteStep removes a step.
func (m *Memory) DeleteStep(ctx context.Context, stepID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.steps[stepID]; !ok {
		return stepNotFound(stepID)
	}
	delete(m.steps, stepID)
	m.audit = append(m.audit, newAuditEntry(stepID, ActionDelete, m.actor, nil))
	return nil
}

// SaveRow creates or renames a swimlane.
func (m *Memory) SaveRow(ctx context.Context, workflowID int64, row process.Row) (process.Row, error) {
	row, err := NormalizeRow(row)
	if err != nil {
		return process.Row{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.workflows[workflowID]; !ok {
		return process.Row{}, workflowNotFound(workflowID)
	}
	if m.rows[workflowID] == nil {
		m.rows[workflowID] = make(map[string]process.Row)
	}
	m.rows[workflowID][row.Letter] = row
	return row, nil
}

// Audit returns the audit entries of a step, oldest first.
func (m *Memory) Audit(ctx context.Context, stepID int64) ([]AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []AuditEntry
	for _, e := range m.audit {
		if e.StepID == stepID {
			out = append(out, e)
		}
	}
	return out, nil
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }

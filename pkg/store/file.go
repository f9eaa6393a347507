package store

import (
	"context"
	"os"
	"sync"

	"github.com/matzehuels/lanemap/pkg/errors"
	snapio "github.com/matzehuels/lanemap/pkg/io"
	"github.com/matzehuels/lanemap/pkg/process"
)

// File is a Store holding a single workflow in a snapshot file. Every
// successful write rewrites the file. Audit entries are kept in memory for
// the lifetime of the store only.
type File struct {
	path string
	mem  *Memory

	mu     sync.Mutex // serializes write + flush
	wfID   int64
	issues []process.Issue
}

var _ Store = (*File)(nil)

// OpenFile loads the snapshot at path. A missing file yields an empty
// store; the file is created by the first write.
func OpenFile(path string) (*File, error) {
	if err := errors.ValidatePath(path); err != nil {
		return nil, err
	}
	if _, err := snapio.FormatFromPath(path); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "snapshot file %s", path)
	}

	f := &File{path: path, mem: NewMemory()}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return f, nil
	}
	snap, issues, err := snapio.ImportSnapshot(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "load %s", path)
	}
	f.wfID = f.mem.Put(snap).Workflow.ID
	f.issues = issues
	return f, nil
}

// Path returns the backing file path.
func (f *File) Path() string { return f.path }

// WorkflowID returns the id of the stored workflow, or 0 if the file holds
// none yet.
func (f *File) WorkflowID() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.wfID
}

func (f *File) flush(ctx context.Context) error {
	snap, _, err := f.mem.Snapshot(ctx, f.wfID)
	if err != nil {
		return err
	}
	if err := snapio.ExportSnapshot(snap, f.path); err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "save %s", f.path)
	}
	return nil
}

// Workflows returns the file's workflow, if it holds one.
func (f *File) Workflows(ctx context.Context) ([]process.Workflow, error) {
	return f.mem.Workflows(ctx)
}

// CreateWorkflow starts a new workflow in an empty file.
func (f *File) CreateWorkflow(ctx context.Context, name, description string) (process.Workflow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.wfID != 0 {
		return process.Workflow{}, errors.New(errors.ErrCodeUnsupported,
			"%s already holds workflow %d; a snapshot file stores one workflow", f.path, f.wfID)
	}
	wf, err := f.mem.CreateWorkflow(ctx, name, description)
	if err != nil {
		return process.Workflow{}, err
	}
	f.wfID = wf.ID
	return wf, f.flush(ctx)
}

// Snapshot returns the stored workflow. Issues found while loading the file
// are reported on every call.
func (f *File) Snapshot(ctx context.Context, workflowID int64) (process.Snapshot, []process.Issue, error) {
	snap, _, err := f.mem.Snapshot(ctx, workflowID)
	if err != nil {
		return snap, nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return snap, f.issues, nil
}

// CreateStep adds a step and rewrites the file.
func (f *File) CreateStep(ctx context.Context, workflowID int64, step process.Step) (process.Step, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, err := f.mem.CreateStep(ctx, workflowID, step)
	if err != nil {
		return st, err
	}
	return st, f.flush(ctx)
}

// UpdateStepAddress moves a step and rewrites the file.
func (f *File) UpdateStepAddress(ctx context.Context, stepID int64, address string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	addr, err := f.mem.UpdateStepAddress(ctx, stepID, address)
	if err != nil {
		return "", err
	}
	return addr, f.flush(ctx)
}

// DeleteStep removes a step and rewrites the file.
func (f *File) DeleteStep(ctx context.Context, stepID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.mem.DeleteStep(ctx, stepID); err != nil {
		return err
	}
	return f.flush(ctx)
}

// SaveRow creates or renames a swimlane and rewrites the file.
func (f *File) SaveRow(ctx context.Context, workflowID int64, row process.Row) (process.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, err := f.mem.SaveRow(ctx, workflowID, row)
	if err != nil {
		return r, err
	}
	return r, f.flush(ctx)
}

// Audit returns entries recorded through this File.
func (f *File) Audit(ctx context.Context, stepID int64) ([]AuditEntry, error) {
	return f.mem.Audit(ctx, stepID)
}

// Close is a no-op; every write is already flushed.
func (f *File) Close() error { return nil }

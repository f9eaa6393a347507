package process

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/matzehuels/lanemap/pkg/errors"
)

// StepRecord is a step as exchanged with the persistence layer. Connections
// are kept raw because stores hand them over either as a JSON array or as a
// string column holding that array.
type StepRecord struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name,omitempty"`
	Kind        string          `json:"kind"`
	Address     *string         `json:"address"`
	Status      string          `json:"status,omitempty"`
	Connections json.RawMessage `json:"connections,omitempty"`
}

// RowRecord is a swimlane row as exchanged with the persistence layer.
type RowRecord struct {
	Letter string `json:"letter"`
	Name   string `json:"name,omitempty"`
}

// Issue records a recoverable problem found while ingesting a record.
type Issue struct {
	StepID int64
	Err    error
}

func (i Issue) String() string {
	return fmt.Sprintf("step %d: %v", i.StepID, i.Err)
}

// DecodeConnections parses a stored connection payload.
//
// Accepted shapes are a JSON array of {condition?, next?} objects, a JSON
// string whose content is such an array, or null/empty. Any other payload
// returns an ErrCodeInvalidFormat error; callers should fall back to an
// empty list for that step.
func DecodeConnections(raw []byte) ([]Connection, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	if raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "connections string")
		}
		return decodeConnectionArray([]byte(inner))
	}
	return decodeConnectionArray(raw)
}

// DecodeConnectionString is DecodeConnections for a string column.
func DecodeConnectionString(s string) ([]Connection, error) {
	return decodeConnectionArray([]byte(s))
}

func decodeConnectionArray(raw []byte) ([]Connection, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] != '[' {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "connections must be a JSON array")
	}

	var conns []Connection
	if err := json.Unmarshal(raw, &conns); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "connections array")
	}
	for i := range conns {
		conns[i].Label = strings.TrimSpace(conns[i].Label)
		conns[i].TargetAddress = strings.TrimSpace(conns[i].TargetAddress)
	}
	return conns, nil
}

// EncodeConnections serializes connections for a string column. An empty
// list encodes as "".
func EncodeConnections(conns []Connection) (string, error) {
	if len(conns) == 0 {
		return "", nil
	}
	data, err := json.Marshal(conns)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ToStep converts the record into a Step. A malformed connection payload is
// reported through the returned Issue and the step keeps an empty list.
func (r StepRecord) ToStep() (Step, *Issue) {
	s := Step{
		ID:     r.ID,
		Name:   r.Name,
		Kind:   ParseKind(r.Kind),
		Status: r.Status,
	}
	if r.Address != nil {
		s.Address = strings.TrimSpace(*r.Address)
	}

	conns, err := DecodeConnections(r.Connections)
	if err != nil {
		return s, &Issue{StepID: r.ID, Err: err}
	}
	s.Connections = conns
	return s, nil
}

// ToRow converts the record into a Row with an uppercase letter.
func (r RowRecord) ToRow() Row {
	return Row{
		Letter: strings.ToUpper(strings.TrimSpace(r.Letter)),
		Name:   strings.TrimSpace(r.Name),
	}
}

// FromRecords converts stored records into a snapshot. Malformed connection
// payloads never abort ingestion; they are returned as issues.
func FromRecords(wf Workflow, steps []StepRecord, rows []RowRecord) (Snapshot, []Issue) {
	snap := Snapshot{
		Workflow: wf,
		Steps:    make([]Step, 0, len(steps)),
		Rows:     make([]Row, 0, len(rows)),
	}
	var issues []Issue
	for _, rec := range steps {
		st, issue := rec.ToStep()
		if issue != nil {
			issues = append(issues, *issue)
		}
		snap.Steps = append(snap.Steps, st)
	}
	for _, rec := range rows {
		snap.Rows = append(snap.Rows, rec.ToRow())
	}
	return snap, issues
}

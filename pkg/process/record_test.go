package process

import (
	"encoding/json"
	"testing"

	"github.com/matzehuels/lanemap/pkg/errors"
)

func TestDecodeConnections(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    []Connection
		wantErr bool
	}{
		{"empty", ``, nil, false},
		{"null", `null`, nil, false},
		{"empty array", `[]`, []Connection{}, false},
		{
			name: "array",
			raw:  `[{"condition":"Approve","next":"C8"},{"next":"D1"}]`,
			want: []Connection{{Label: "Approve", TargetAddress: "C8"}, {TargetAddress: "D1"}},
		},
		{
			name: "string holding array",
			raw:  `"[{\"next\":\"B1\"}]"`,
			want: []Connection{{TargetAddress: "B1"}},
		},
		{"empty string", `""`, nil, false},
		{
			name: "trims whitespace",
			raw:  `[{"condition":" Yes ","next":" b2 "}]`,
			want: []Connection{{Label: "Yes", TargetAddress: "b2"}},
		},
		{"dangling entry", `[{"condition":"Reject"}]`, []Connection{{Label: "Reject"}}, false},

		{"object", `{"next":"B1"}`, nil, true},
		{"number", `42`, nil, true},
		{"bad json", `[{"next":`, nil, true},
		{"wrong field type", `[{"next":5}]`, nil, true},
		{"string holding garbage", `"not json"`, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeConnections([]byte(tt.raw))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("DecodeConnections(%s) = %v, want error", tt.raw, got)
				}
				if !errors.Is(err, errors.ErrCodeInvalidFormat) {
					t.Errorf("code = %v, want %v", errors.GetCode(err), errors.ErrCodeInvalidFormat)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeConnections(%s): %v", tt.raw, err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("len = %d, want %d (%v)", len(got), len(tt.want), got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("[%d] = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestEncodeConnectionsRoundTrip(t *testing.T) {
	conns := []Connection{{Label: "Approve", TargetAddress: "C8"}, {TargetAddress: "A2"}}
	s, err := EncodeConnections(conns)
	if err != nil {
		t.Fatalf("EncodeConnections: %v", err)
	}
	back, err := DecodeConnectionString(s)
	if err != nil {
		t.Fatalf("DecodeConnectionString: %v", err)
	}
	if len(back) != 2 || back[0] != conns[0] || back[1] != conns[1] {
		t.Errorf("round trip = %+v, want %+v", back, conns)
	}

	if s, _ := EncodeConnections(nil); s != "" {
		t.Errorf("EncodeConnections(nil) = %q, want empty", s)
	}
}

func TestFromRecordsFailSoft(t *testing.T) {
	var records []StepRecord
	data := `[
		{"id": 1, "kind": "task", "address": "A1", "connections": "[{\"next\":\"B1\"}]"},
		{"id": 2, "kind": "DECISION", "address": " b1 ", "connections": "{broken"},
		{"id": 3, "kind": "task", "address": null}
	]`
	if err := json.Unmarshal([]byte(data), &records); err != nil {
		t.Fatalf("unmarshal records: %v", err)
	}

	snap, issues := FromRecords(Workflow{ID: 9, Name: "Claims"},
		records, []RowRecord{{Letter: "a", Name: " Intake "}})

	if len(snap.Steps) != 3 {
		t.Fatalf("steps = %d, want 3", len(snap.Steps))
	}
	if len(issues) != 1 || issues[0].StepID != 2 {
		t.Fatalf("issues = %v, want one issue for step 2", issues)
	}

	if got := snap.Steps[0].Connections; len(got) != 1 || got[0].TargetAddress != "B1" {
		t.Errorf("step 1 connections = %+v", got)
	}
	if got := snap.Steps[1]; got.Kind != KindDecision || got.Address != "b1" || len(got.Connections) != 0 {
		t.Errorf("step 2 = %+v", got)
	}
	if snap.Steps[2].Address != "" {
		t.Errorf("step 3 address = %q, want unplaced", snap.Steps[2].Address)
	}
	if snap.Rows[0] != (Row{Letter: "A", Name: "Intake"}) {
		t.Errorf("row = %+v", snap.Rows[0])
	}
}

package id_test

import (
	"strings"
	"testing"

	"github.com/xraph/continuum/id"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		newFn  func() id.ID
		prefix string
	}{
		{"SessionID", id.NewSessionID, "sess_"},
		{"RunID", id.NewRunID, "run_"},
		{"CheckpointID", id.NewCheckpointID, "ckpt_"},
		{"BranchID", id.NewBranchID, "br_"},
		{"MergeID", id.NewMergeID, "merge_"},
		{"MessageID", id.NewMessageID, "msg_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.newFn().String()
			if !strings.HasPrefix(got, tt.prefix) {
				t.Errorf("expected prefix %q, got %q", tt.prefix, got)
			}
		})
	}
}

func TestNew(t *testing.T) {
	i := id.New(id.PrefixRun)
	if i.IsNil() {
		t.Fatal("expected non-nil ID")
	}
	if i.Prefix() != id.PrefixRun {
		t.Errorf("expected prefix %q, got %q", id.PrefixRun, i.Prefix())
	}
}

func TestParseRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		newFn   func() id.ID
		parseFn func(string) (id.ID, error)
	}{
		{"SessionID", id.NewSessionID, id.ParseSessionID},
		{"RunID", id.NewRunID, id.ParseRunID},
		{"CheckpointID", id.NewCheckpointID, id.ParseCheckpointID},
		{"BranchID", id.NewBranchID, id.ParseBranchID},
		{"MergeID", id.NewMergeID, id.ParseMergeID},
		{"MessageID", id.NewMessageID, id.ParseMessageID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := tt.newFn()
			parsed, err := tt.parseFn(original.String())
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			if parsed.String() != original.String() {
				t.Errorf("round-trip mismatch: %q != %q", parsed.String(), original.String())
			}
		})
	}
}

func TestCrossTypeRejection(t *testing.T) {
	runID := id.NewRunID()

	if _, err := id.ParseBranchID(runID.String()); err == nil {
		t.Error("expected ParseBranchID to reject a run ID")
	}
	if _, err := id.ParseCheckpointID(runID.String()); err == nil {
		t.Error("expected ParseCheckpointID to reject a run ID")
	}
}

func TestParseInvalid(t *testing.T) {
	tests := []string{
		"",
		"not-a-typeid",
		"run_",
		"_01h2xcejqtf2nbrexx3vqjhp41",
	}

	for _, input := range tests {
		if _, err := id.Parse(input); err == nil {
			t.Errorf("Parse(%q): expected error", input)
		}
	}
}

func TestNilID(t *testing.T) {
	var i id.ID

	if !i.IsNil() {
		t.Error("zero-value ID should be nil")
	}
	if i.String() != "" {
		t.Errorf("nil ID string = %q, want empty", i.String())
	}
	if i.Prefix() != "" {
		t.Errorf("nil ID prefix = %q, want empty", i.Prefix())
	}
}

func TestTextMarshalRoundTrip(t *testing.T) {
	original := id.NewCheckpointID()

	text, err := original.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText: %v", err)
	}

	var decoded id.ID
	if err := decoded.UnmarshalText(text); err != nil {
		t.Fatalf("UnmarshalText: %v", err)
	}
	if decoded.String() != original.String() {
		t.Errorf("round-trip mismatch: %q != %q", decoded.String(), original.String())
	}
}

func TestScanValue(t *testing.T) {
	original := id.NewBranchID()

	v, err := original.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}

	var scanned id.ID
	if err := scanned.Scan(v); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if scanned.String() != original.String() {
		t.Errorf("round-trip mismatch: %q != %q", scanned.String(), original.String())
	}

	// NULL scans to Nil.
	var fromNull id.ID
	if err := fromNull.Scan(nil); err != nil {
		t.Fatalf("Scan(nil): %v", err)
	}
	if !fromNull.IsNil() {
		t.Error("expected Nil ID from NULL")
	}

	// Nil ID stores NULL.
	nilVal, err := id.Nil.Value()
	if err != nil {
		t.Fatalf("Nil.Value: %v", err)
	}
	if nilVal != nil {
		t.Errorf("Nil.Value = %v, want nil", nilVal)
	}
}

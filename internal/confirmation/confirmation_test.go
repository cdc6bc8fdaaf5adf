package confirmation

import (
	"bytes"
	"strings"
	"testing"

	"bqdesc-backupper/internal/errors"
)

func TestConfirm(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{name: "yes", input: "y\n", want: true},
		{name: "full yes", input: "YES\n", want: true},
		{name: "no", input: "n\n", want: false},
		{name: "empty defaults to no", input: "\n", want: false},
		{name: "retry after invalid", input: "maybe\nyes\n", want: true},
		{name: "answer without newline", input: "y", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			s := NewServiceWith(strings.NewReader(tt.input), &out, true)

			got, err := s.Confirm("Recover sales.orders from snapshot 20240315?", false)
			if err != nil {
				t.Fatalf("Confirm() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Confirm() = %v, want %v", got, tt.want)
			}
			if !strings.Contains(out.String(), "[y/N]") {
				t.Errorf("Expected prompt, got: %s", out.String())
			}
		})
	}
}

func TestConfirm_AutoApprove(t *testing.T) {
	var out bytes.Buffer
	s := NewServiceWith(strings.NewReader(""), &out, false)

	got, err := s.Confirm("Make snapshot?", true)
	if err != nil || !got {
		t.Fatalf("Confirm() = %v, %v; want true, nil", got, err)
	}
	if out.Len() != 0 {
		t.Errorf("Expected no prompt, got: %s", out.String())
	}
}

func TestConfirm_NonInteractive(t *testing.T) {
	s := NewServiceWith(strings.NewReader("y\n"), &bytes.Buffer{}, false)

	_, err := s.Confirm("Make snapshot?", false)
	if err == nil {
		t.Fatal("Expected error without a terminal")
	}
	if errors.GetErrorType(err) != errors.ErrorTypeValidation {
		t.Errorf("Expected validation error, got %v", errors.GetErrorType(err))
	}
}

func TestConfirm_ClosedInput(t *testing.T) {
	s := NewServiceWith(strings.NewReader(""), &bytes.Buffer{}, true)

	if _, err := s.Confirm("Make snapshot?", false); err == nil {
		t.Error("Expected error on closed input")
	}
}

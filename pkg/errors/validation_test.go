package errors

import (
	"testing"
)

func TestValidateSequenceName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid simple", "seq_1", false},
		{"valid with dash", "read-42", false},
		{"valid with dot", "sample.rev", false},
		{"valid with slash", "run3/consensus", false},
		{"valid with spaces", "chr1 region 200", false},

		{"empty", "", true},
		{"too long", string(make([]byte, 300)), true},
		{"null byte", "foo\x00bar", true},
		{"control char", "foo\x01bar", true},
		{"tab", "foo\tbar", true},
		{"newline", "foo\nbar", true},
		{"carriage return", "foo\rbar", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSequenceName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSequenceName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateGraphName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid simple", "consensus", false},
		{"valid with dash", "sample-42", false},
		{"valid with underscore", "run_3", false},
		{"valid with dot", "chr1.v2", false},

		{"empty", "", true},
		{"too long", string(make([]byte, 200)), true},
		{"path traversal", "foo..bar", true},
		{"leading dot", ".hidden", true},
		{"slash", "foo/bar", true},
		{"backslash", "foo\\bar", true},
		{"space", "foo bar", true},
		{"null byte", "foo\x00bar", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateGraphName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateGraphName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

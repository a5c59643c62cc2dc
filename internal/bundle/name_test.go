package bundle

import (
	"testing"
)

func TestParseName(t *testing.T) {
	tests := []struct {
		name        string
		filename    string
		wantModel   string
		wantVersion string
		expectError bool
	}{
		{
			name:        "simple name",
			filename:    "mymodel-custom-v10.zip",
			wantModel:   "mymodel",
			wantVersion: "v10",
		},
		{
			name:        "path prefix ignored",
			filename:    "/tmp/uploads/weta-custom-v3.zip",
			wantModel:   "weta",
			wantVersion: "v3",
		},
		{
			name:        "windows path prefix ignored",
			filename:    `C:\Users\me\bird-custom-v2.zip`,
			wantModel:   "bird",
			wantVersion: "v2",
		},
		{
			name:        "hyphenated model name",
			filename:    "night-cam-custom-v1.zip",
			wantModel:   "night-cam",
			wantVersion: "v1",
		},
		{
			name:        "missing zip suffix",
			filename:    "mymodel-custom-v10.tar",
			expectError: true,
		},
		{
			name:        "missing separator",
			filename:    "mymodel-v10.zip",
			expectError: true,
		},
		{
			name:        "empty model segment",
			filename:    "-custom-v1.zip",
			expectError: true,
		},
		{
			name:        "empty version segment",
			filename:    "model-custom-.zip",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseName(tt.filename)
			if tt.expectError {
				if err == nil {
					t.Fatalf("ParseName(%q) expected error, got %+v", tt.filename, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseName(%q) unexpected error: %v", tt.filename, err)
			}
			if got.Model != tt.wantModel || got.Version != tt.wantVersion {
				t.Errorf("ParseName(%q) = %+v, want {%s %s}", tt.filename, got, tt.wantModel, tt.wantVersion)
			}
		})
	}
}

func TestNameDerived(t *testing.T) {
	n := Name{Model: "mymodel", Version: "v10"}
	if got := n.Container(); got != "mymodel-custom-v10" {
		t.Errorf("Container() = %q", got)
	}
	if got := n.CompiledModelName(); got != "mymodel-custom-v10_vela.tflite" {
		t.Errorf("CompiledModelName() = %q", got)
	}
}

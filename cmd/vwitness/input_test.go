package main

import (
	"bytes"
	stderrors "errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wippyai/value-witness/bitvec"
	"github.com/wippyai/value-witness/errors"
	"github.com/wippyai/value-witness/layout"
)

func TestReadLayout(t *testing.T) {
	file := writeFile(t, "layout.txt", "  a(0:c, 3:N)\n")

	tests := []struct {
		arg  string
		want []byte
	}{
		{"N", []byte("N")},
		{"hex:4e 6c", []byte("Nl")},
		{"hex:0x4e", []byte("N")},
		{"@" + file, layout.MustParse("a(0:c, 3:N)")},
	}

	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			got, err := readLayout(tt.arg)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("readLayout = % x, want % x", got, tt.want)
			}
		})
	}
}

func TestReadLayout_Errors(t *testing.T) {
	tests := []struct {
		arg  string
		kind errors.Kind
	}{
		{"a(0:c", errors.KindSyntax},
		{"hex:zz", errors.KindSyntax},
		{"hex:5a", errors.KindUnknownTag},
		{"@/does/not/exist", errors.KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			_, err := readLayout(tt.arg)
			var e *errors.Error
			if !stderrors.As(err, &e) {
				t.Fatalf("err = %v, want *errors.Error", err)
			}
			if e.Kind != tt.kind {
				t.Errorf("Kind = %s, want %s", e.Kind, tt.kind)
			}
		})
	}
}

func TestLoadMetadata(t *testing.T) {
	path := writeFile(t, "meta.toml", `
[[generic]]
layout = "l"

[[generic]]
name = "Box"
layout = "a(?:A<0>, 3:N)"
`)
	args, err := loadMetadata(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(args) != 2 {
		t.Fatalf("len = %d, want 2", len(args))
	}
	if args[1].Size() != 16 || args[1].Alignment() != 8 {
		t.Errorf("Box size/align = %d/%d", args[1].Size(), args[1].Alignment())
	}
}

func TestLoadMetadata_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		phase   errors.Phase
		kind    errors.Kind
		want    string
	}{
		{"missing layout", "[[generic]]\nname = \"T\"\n", errors.PhaseConfig, errors.KindInvalidInput, "missing layout"},
		{"unknown key", "[[generic]]\nlayout = \"N\"\nsize = 8\n", errors.PhaseConfig, errors.KindInvalidInput, "unknown key"},
		{"forward reference", "[[generic]]\nlayout = \"A<0>\"\n", errors.PhaseLayout, errors.KindGenericIndex, "generic[0]"},
		{"bad layout", "[[generic]]\nname = \"T\"\nlayout = \"a(\"\n", errors.PhaseParse, errors.KindSyntax, "T"},
		{"bad toml", "[[generic]\n", errors.PhaseConfig, errors.KindSyntax, "failed to parse TOML"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadMetadata(writeFile(t, "meta.toml", tt.content))
			var e *errors.Error
			if !stderrors.As(err, &e) {
				t.Fatalf("err = %v, want *errors.Error", err)
			}
			if e.Phase != tt.phase || e.Kind != tt.kind {
				t.Errorf("err = %v, want %s/%s", err, tt.phase, tt.kind)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestLoadMetadata_MissingFile(t *testing.T) {
	_, err := loadMetadata(filepath.Join(t.TempDir(), "missing.toml"))
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Kind != errors.KindNotFound || e.Phase != errors.PhaseConfig {
		t.Errorf("err = %v, want config not_found", err)
	}
}

func TestRenderMask(t *testing.T) {
	tests := []struct {
		mask bitvec.Vector
		want string
	}{
		{bitvec.Vector{}, "(empty)"},
		{bitvec.FromBytes(0x80, 0x01), "10000000 00000001"},
		{bitvec.FromBits(1, 0, 1), "101"},
	}
	for _, tt := range tests {
		if got := renderMask(tt.mask, false); got != tt.want {
			t.Errorf("renderMask(%s) = %q, want %q", tt.mask, got, tt.want)
		}
	}
}

package main

import (
	"encoding/hex"
	stderrors "errors"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/wippyai/value-witness/errors"
	"github.com/wippyai/value-witness/layout"
	"github.com/wippyai/value-witness/witness"
)

// readLayout turns a command line argument into a layout program.
func readLayout(arg string) ([]byte, error) {
	src := arg
	if path, ok := strings.CutPrefix(arg, "@"); ok {
		data, err := os.ReadFile(path)
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, notFound(errors.PhaseParse, "layout file", path, err)
		}
		if err != nil {
			return nil, errors.Wrap(errors.PhaseParse, errors.KindInvalidInput, err, "read layout file")
		}
		src = strings.TrimSpace(string(data))
	}

	if h, ok := strings.CutPrefix(src, "hex:"); ok {
		prog, err := parseHex(h)
		if err != nil {
			return nil, err
		}
		if _, err := layout.DecodeAll(prog); err != nil {
			return nil, err
		}
		return prog, nil
	}
	return layout.Parse(src)
}

func notFound(phase errors.Phase, what, path string, cause error) error {
	e := errors.NotFound(phase, what, path)
	e.Cause = cause
	return e
}

// parseHex decodes hex bytes, ignoring whitespace and underscores.
func parseHex(s string) ([]byte, error) {
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r', '_':
			return -1
		}
		return r
	}, s)
	s = strings.TrimPrefix(s, "0x")
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseParse, errors.KindSyntax, err, "invalid hex")
	}
	return b, nil
}

type metadataFile struct {
	Generic []genericEntry `toml:"generic"`
}

type genericEntry struct {
	Name   string `toml:"name"`
	Layout string `toml:"layout"`
}

// loadMetadata reads generic arguments from a TOML file. Each argument's
// own placeholders resolve against the arguments declared before it.
func loadMetadata(path string) (witness.GenericArgs, error) {
	var cfg metadataFile
	meta, err := toml.DecodeFile(path, &cfg)
	if stderrors.Is(err, fs.ErrNotExist) {
		return nil, notFound(errors.PhaseConfig, "metadata file", path, err)
	}
	if err != nil {
		return nil, errors.New(errors.PhaseConfig, errors.KindSyntax).
			Path(path).
			Cause(err).
			Detail("failed to parse TOML").
			Build()
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Path(path).
			Detail("unknown key %s", undecoded[0]).
			Build()
	}

	args := make(witness.GenericArgs, 0, len(cfg.Generic))
	for i, g := range cfg.Generic {
		name := g.Name
		if name == "" {
			name = "generic[" + strconv.Itoa(i) + "]"
		}
		if strings.TrimSpace(g.Layout) == "" {
			return nil, errors.New(errors.PhaseConfig, errors.KindInvalidInput).
				Path(path, name).
				Detail("missing layout").
				Build()
		}
		prog, err := readLayout(g.Layout)
		if err != nil {
			return nil, errors.At(errors.At(err, name), path)
		}
		t, err := witness.NewLayoutType(prog, args)
		if err != nil {
			return nil, errors.At(errors.At(err, name), path)
		}
		args = append(args, t)
	}
	return args, nil
}

// metadataFlag loads the --metadata file if one was given.
func metadataFlag(cmd *cobra.Command) (witness.Metadata, error) {
	path, _ := cmd.Flags().GetString("metadata")
	if path == "" {
		return nil, nil
	}
	return loadMetadata(path)
}

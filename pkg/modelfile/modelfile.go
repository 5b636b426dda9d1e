// Package modelfile reads and writes models on disk. The format follows the
// file extension: Lisp scripts (.strata, .lisp), YAML (.yaml, .yml) and
// SQLite databases (.db, .sqlite).
package modelfile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/chazu/strata/pkg/engine"
	"github.com/chazu/strata/pkg/model"
	"github.com/chazu/strata/pkg/store"
	"github.com/chazu/strata/pkg/store/memory"
	"github.com/chazu/strata/pkg/store/sqlite"
)

// Version is written to every YAML model file.
const Version = "1"

// Format is an on-disk model format.
type Format int

const (
	Script Format = iota
	YAML
	SQLite
)

func (f Format) String() string {
	switch f {
	case Script:
		return "script"
	case YAML:
		return "yaml"
	case SQLite:
		return "sqlite"
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// ErrUnknownFormat is returned for paths whose extension names no format.
var ErrUnknownFormat = errors.New("unknown model file format")

// ErrReadOnly is returned when saving to a format that cannot be written.
var ErrReadOnly = errors.New("model format is read-only")

// DetectFormat picks the format from the file extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".strata", ".lisp", ".zy":
		return Script, nil
	case ".yaml", ".yml":
		return YAML, nil
	case ".db", ".sqlite", ".sqlite3":
		return SQLite, nil
	}
	return 0, fmt.Errorf("%s: %w", path, ErrUnknownFormat)
}

// file is the YAML layout of a model file.
type file struct {
	Version        string `yaml:"version"`
	model.Document `yaml:",inline"`
}

// ReadYAML decodes a YAML model.
func ReadYAML(r io.Reader) (model.Document, error) {
	var f file
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return model.Document{}, nil
		}
		return model.Document{}, fmt.Errorf("decode model: %w", err)
	}
	if f.Version != "" && f.Version != Version {
		return model.Document{}, fmt.Errorf("unsupported model file version %q", f.Version)
	}
	return f.Document, nil
}

// WriteYAML encodes doc as YAML.
func WriteYAML(w io.Writer, doc model.Document) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(file{Version: Version, Document: doc}); err != nil {
		return fmt.Errorf("encode model: %w", err)
	}
	return enc.Close()
}

// Read loads the document stored at path.
func Read(ctx context.Context, path string, eng *engine.Engine) (model.Document, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return model.Document{}, err
	}
	switch format {
	case SQLite:
		s, err := sqlite.Open(path)
		if err != nil {
			return model.Document{}, err
		}
		defer s.Close()
		return s.Document(ctx)
	case YAML:
		data, err := os.ReadFile(path)
		if err != nil {
			return model.Document{}, fmt.Errorf("read model: %w", err)
		}
		return ReadYAML(bytes.NewReader(data))
	default:
		return readScript(path, eng)
	}
}

func readScript(path string, eng *engine.Engine) (model.Document, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return model.Document{}, fmt.Errorf("read model: %w", err)
	}
	if eng == nil {
		eng = engine.NewEngine(0)
	}
	doc, evalErrs, err := eng.Evaluate(string(src))
	if err != nil {
		return model.Document{}, fmt.Errorf("evaluate %s: %w", path, err)
	}
	if len(evalErrs) > 0 {
		errs := make([]error, len(evalErrs))
		for i, e := range evalErrs {
			errs[i] = e
		}
		return model.Document{}, fmt.Errorf("evaluate %s: %w", path, errors.Join(errs...))
	}
	return *doc, nil
}

// Open returns a store holding the model at path. SQLite files are opened
// in place, so decompositions are written straight back to them; other
// formats are loaded into memory.
func Open(ctx context.Context, path string, eng *engine.Engine) (store.Backend, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	if format == SQLite {
		return sqlite.Open(path)
	}
	doc, err := Read(ctx, path, eng)
	if err != nil {
		return nil, err
	}
	s := memory.New()
	if err := s.Load(ctx, doc); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Save writes doc to path in the format its extension names. A SQLite file
// is replaced by the document.
func Save(ctx context.Context, path string, doc model.Document) error {
	format, err := DetectFormat(path)
	if err != nil {
		return err
	}
	switch format {
	case YAML:
		var buf bytes.Buffer
		if err := WriteYAML(&buf, doc); err != nil {
			return err
		}
		if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
			return fmt.Errorf("write model: %w", err)
		}
		return nil
	case SQLite:
		s, err := sqlite.Open(path)
		if err != nil {
			return err
		}
		if err := s.Load(ctx, doc); err != nil {
			s.Close()
			return err
		}
		return s.Close()
	}
	return fmt.Errorf("%s: %s: %w", path, format, ErrReadOnly)
}

package export

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/casbin/govaluate"
	"go.uber.org/zap"

	"github.com/wippyai/storage-layout/errors"
	"github.com/wippyai/storage-layout/layout"
)

// Source lists and loads contract layouts.
type Source interface {
	FullyQualifiedNames(ctx context.Context) ([]string, error)
	Load(ctx context.Context, name string) (*layout.StorageLayout, error)
}

// Options controls which layouts are written and where.
type Options struct {
	// Root is the project directory. Output must stay strictly inside it.
	Root string
	// Path is the output directory, relative to Root unless absolute.
	Path string
	// Clear removes Path before writing.
	Clear bool
	// Flat writes <Name>.json directly under Path.
	Flat bool
	// Only keeps qualified names matching any pattern; empty keeps all.
	Only []string
	// Except drops qualified names matching any pattern.
	Except []string
	// Where is a govaluate expression over name, source, contract, variables and types.
	Where string
	// Spacing is the JSON indentation width; 0 writes compact JSON.
	Spacing int
}

// document is the exported file shape.
type document struct {
	Storage []layout.StorageElement       `json:"storage"`
	Types   map[string]layout.StorageType `json:"types"`
}

type pending struct {
	name   string
	dest   string
	layout *layout.StorageLayout
}

// Run writes one file per selected contract with non-empty storage and returns the
// written paths in name order. Nothing is written when selection or loading fails.
func Run(ctx context.Context, src Source, opts Options) ([]string, error) {
	out, err := outputDir(opts.Root, opts.Path)
	if err != nil {
		return nil, err
	}

	f, err := newFilter(opts)
	if err != nil {
		return nil, err
	}

	names, err := src.FullyQualifiedNames(ctx)
	if err != nil {
		return nil, err
	}

	var todo []pending
	seen := map[string]string{}
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !f.matchName(name) {
			continue
		}

		l, err := src.Load(ctx, name)
		if err != nil {
			return nil, err
		}
		if len(l.Storage) == 0 {
			Logger().Debug("skipping contract without storage", zap.String("contract", name))
			continue
		}
		ok, err := f.matchLayout(name, l)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		dest := destination(out, name, opts.Flat)
		if prev, dup := seen[dest]; dup {
			return nil, errors.New(errors.PhaseExport, errors.KindInvalidInput).
				Source(dest).
				Detail("%s and %s export to the same file; disable flat output", prev, name).
				Build()
		}
		seen[dest] = name
		todo = append(todo, pending{name: name, dest: dest, layout: l})
	}

	if opts.Clear {
		Logger().Debug("clearing output directory", zap.String("dir", out))
		if err := os.RemoveAll(out); err != nil {
			return nil, errors.IO(errors.PhaseExport, out, err)
		}
	}
	if err := os.MkdirAll(out, 0o755); err != nil {
		return nil, errors.IO(errors.PhaseExport, out, err)
	}

	written := make([]string, 0, len(todo))
	for _, p := range todo {
		data, err := encode(p.layout, opts.Spacing)
		if err != nil {
			return written, errors.Wrap(errors.PhaseExport, errors.KindInvalidData, err, p.name)
		}
		if err := os.MkdirAll(filepath.Dir(p.dest), 0o755); err != nil {
			return written, errors.IO(errors.PhaseExport, filepath.Dir(p.dest), err)
		}
		if err := os.WriteFile(p.dest, data, 0o644); err != nil {
			return written, errors.IO(errors.PhaseExport, p.dest, err)
		}
		Logger().Debug("exported layout", zap.String("contract", p.name), zap.String("path", p.dest))
		written = append(written, p.dest)
	}

	Logger().Info("export complete", zap.String("dir", out), zap.Int("files", len(written)))
	return written, nil
}

// outputDir resolves path against root and rejects anything not strictly below it.
func outputDir(root, path string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", errors.IO(errors.PhaseExport, root, err)
	}
	out := path
	if !filepath.IsAbs(out) {
		out = filepath.Join(absRoot, out)
	}
	out = filepath.Clean(out)

	rel, err := filepath.Rel(absRoot, out)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.New(errors.PhaseExport, errors.KindInvalidInput).
			Source(out).
			Detail("output path must be inside the project directory %s", absRoot).
			Build()
	}
	if rel == "." {
		return "", errors.New(errors.PhaseExport, errors.KindInvalidInput).
			Source(out).
			Detail("output path must not be the project directory").
			Build()
	}
	return out, nil
}

func destination(out, name string, flat bool) string {
	if flat {
		_, contract := splitName(name)
		return filepath.Join(out, contract+".json")
	}
	return filepath.Join(out, filepath.FromSlash(name)+".json")
}

func encode(l *layout.StorageLayout, spacing int) ([]byte, error) {
	doc := document{Storage: l.Storage, Types: l.Types}
	var (
		data []byte
		err  error
	)
	if spacing > 0 {
		data, err = json.MarshalIndent(doc, "", strings.Repeat(" ", spacing))
	} else {
		data, err = json.Marshal(doc)
	}
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

type filter struct {
	only   []*regexp.Regexp
	except []*regexp.Regexp
	where  *govaluate.EvaluableExpression
}

func newFilter(opts Options) (*filter, error) {
	f := &filter{}
	for _, p := range opts.Only {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, errors.Wrap(errors.PhaseExport, errors.KindInvalidInput, err, "only pattern "+p)
		}
		f.only = append(f.only, re)
	}
	for _, p := range opts.Except {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, errors.Wrap(errors.PhaseExport, errors.KindInvalidInput, err, "except pattern "+p)
		}
		f.except = append(f.except, re)
	}
	if opts.Where != "" {
		expr, err := govaluate.NewEvaluableExpression(opts.Where)
		if err != nil {
			return nil, errors.Wrap(errors.PhaseExport, errors.KindInvalidInput, err, "where expression")
		}
		f.where = expr
	}
	return f, nil
}

func (f *filter) matchName(name string) bool {
	if len(f.only) > 0 && !anyMatch(f.only, name) {
		return false
	}
	return !anyMatch(f.except, name)
}

func (f *filter) matchLayout(name string, l *layout.StorageLayout) (bool, error) {
	if f.where == nil {
		return true, nil
	}
	source, contract := splitName(name)
	result, err := f.where.Evaluate(map[string]any{
		"name":      name,
		"source":    source,
		"contract":  contract,
		"variables": float64(len(l.Storage)),
		"types":     float64(len(l.Types)),
	})
	if err != nil {
		return false, errors.Wrap(errors.PhaseExport, errors.KindInvalidInput, err, "evaluating where for "+name)
	}
	ok, isBool := result.(bool)
	if !isBool {
		return false, errors.New(errors.PhaseExport, errors.KindInvalidInput).
			Value(result).
			Detail("where expression must be boolean, got %T", result).
			Build()
	}
	return ok, nil
}

func anyMatch(res []*regexp.Regexp, s string) bool {
	for _, re := range res {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

func splitName(name string) (source, contract string) {
	i := strings.LastIndexByte(name, ':')
	if i < 0 {
		return "", name
	}
	return name[:i], name[i+1:]
}

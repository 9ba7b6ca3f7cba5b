package artifact

import (
	"context"
	"encoding/json"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/storage-layout/errors"
	"github.com/wippyai/storage-layout/layout"
)

// DefaultDir is the artifacts directory relative to the project root.
const DefaultDir = "artifacts"

const buildInfoDir = "build-info"

// Ref identifies one compiled contract artifact.
type Ref struct {
	SourceName   string
	ContractName string
	// Path is the artifact file, relative to the store's file system.
	Path string
	// BuildInfoID is set by Hardhat 3 artifacts.
	BuildInfoID string
}

// QualifiedName returns "source:Name".
func (r Ref) QualifiedName() string {
	return r.SourceName + ":" + r.ContractName
}

// header is the subset of an artifact file needed for indexing.
type header struct {
	ContractName string `json:"contractName"`
	SourceName   string `json:"sourceName"`
	BuildInfoID  string `json:"buildInfoId"`
}

// debugFile is the Hardhat 2 <Name>.dbg.json companion.
type debugFile struct {
	BuildInfo string `json:"buildInfo"`
}

type buildInfo struct {
	Output struct {
		Contracts map[string]map[string]struct {
			StorageLayout json.RawMessage `json:"storageLayout"`
		} `json:"contracts"`
	} `json:"output"`
}

// Store resolves contract names to storage layouts from a compiled project.
// It is safe for concurrent use.
type Store struct {
	fsys      fs.FS
	root      string
	artifacts string

	mu    sync.Mutex
	index []Ref
}

// Open returns a Store reading the project at root from the operating system.
// artifacts is relative to root; empty means DefaultDir.
func Open(root, artifacts string) *Store {
	return New(os.DirFS(root), root, artifacts)
}

// New returns a Store over fsys, whose top is the project root. root is only used
// to resolve absolute layout file paths that fall inside the project.
func New(fsys fs.FS, root, artifacts string) *Store {
	if artifacts == "" {
		artifacts = DefaultDir
	}
	return &Store{
		fsys:      fsys,
		root:      root,
		artifacts: path.Clean(filepath.ToSlash(artifacts)),
	}
}

// Root returns the project root the store was opened with.
func (s *Store) Root() string {
	return s.root
}

// Load returns the layout named by name. A name ending in .json is read as a standalone
// layout file, relative to the project root unless absolute. Any other name is a bare
// contract name or a "source.sol:Name" qualified name looked up in the artifacts.
func (s *Store) Load(ctx context.Context, name string) (*layout.StorageLayout, error) {
	if strings.EqualFold(path.Ext(name), ".json") {
		return s.LoadFile(name)
	}
	ref, err := s.Resolve(ctx, name)
	if err != nil {
		return nil, err
	}
	return s.loadRef(ref)
}

// LoadFile reads and validates a standalone layout file.
func (s *Store) LoadFile(name string) (*layout.StorageLayout, error) {
	data, source, err := s.readFile(name)
	if err != nil {
		return nil, err
	}
	Logger().Debug("loading layout file", zap.String("path", source))
	return layout.Parse(data, source)
}

func (s *Store) readFile(name string) ([]byte, string, error) {
	if filepath.IsAbs(name) {
		if rel, err := filepath.Rel(s.root, name); err == nil && s.root != "" && !strings.HasPrefix(rel, "..") {
			name = rel
		} else {
			data, err := os.ReadFile(name)
			if err != nil {
				return nil, name, errors.IO(errors.PhaseLoad, name, err)
			}
			return data, name, nil
		}
	}
	p := path.Clean(filepath.ToSlash(name))
	data, err := fs.ReadFile(s.fsys, p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, p, errors.NotFound(errors.PhaseLoad, "layout file", p)
		}
		return nil, p, errors.IO(errors.PhaseLoad, p, err)
	}
	return data, p, nil
}

// Resolve finds the artifact for a bare or qualified contract name.
func (s *Store) Resolve(ctx context.Context, name string) (Ref, error) {
	refs, err := s.refs(ctx)
	if err != nil {
		return Ref{}, err
	}

	if strings.Contains(name, ":") {
		for _, r := range refs {
			if r.QualifiedName() == name {
				return r, nil
			}
		}
		return Ref{}, errors.NotFound(errors.PhaseLoad, "contract", name)
	}

	var matches []Ref
	for _, r := range refs {
		if r.ContractName == name {
			matches = append(matches, r)
		}
	}
	switch len(matches) {
	case 0:
		return Ref{}, errors.NotFound(errors.PhaseLoad, "contract", name)
	case 1:
		return matches[0], nil
	}
	names := make([]string, len(matches))
	for i, m := range matches {
		names[i] = m.QualifiedName()
	}
	return Ref{}, errors.NewAmbiguousNameError(name, names)
}

// FullyQualifiedNames lists every contract in the artifacts, sorted.
func (s *Store) FullyQualifiedNames(ctx context.Context) ([]string, error) {
	refs, err := s.refs(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(refs))
	for i, r := range refs {
		names[i] = r.QualifiedName()
	}
	return names, nil
}

func (s *Store) refs(ctx context.Context) ([]Ref, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index != nil {
		return s.index, nil
	}

	index := []Ref{}
	err := fs.WalkDir(s.fsys, s.artifacts, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == buildInfoDir {
				return fs.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(p, ".json") || strings.HasSuffix(p, ".dbg.json") {
			return nil
		}

		data, err := fs.ReadFile(s.fsys, p)
		if err != nil {
			return err
		}
		var h header
		if err := json.Unmarshal(data, &h); err != nil || h.ContractName == "" || h.SourceName == "" {
			Logger().Debug("skipping non-artifact file", zap.String("path", p))
			return nil
		}
		index = append(index, Ref{
			SourceName:   h.SourceName,
			ContractName: h.ContractName,
			Path:         p,
			BuildInfoID:  h.BuildInfoID,
		})
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errors.NotFound(errors.PhaseLoad, "artifacts directory", s.artifacts)
		}
		return nil, errors.IO(errors.PhaseLoad, s.artifacts, err)
	}

	sort.Slice(index, func(i, j int) bool {
		return index[i].QualifiedName() < index[j].QualifiedName()
	})
	Logger().Debug("indexed artifacts", zap.String("dir", s.artifacts), zap.Int("contracts", len(index)))

	s.index = index
	return index, nil
}

// buildInfoPath locates the compiler output holding ref's layout.
func (s *Store) buildInfoPath(ref Ref) (string, error) {
	if ref.BuildInfoID != "" {
		return path.Join(s.artifacts, buildInfoDir, ref.BuildInfoID+".output.json"), nil
	}

	dbg := strings.TrimSuffix(ref.Path, ".json") + ".dbg.json"
	data, err := fs.ReadFile(s.fsys, dbg)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", errors.NotFound(errors.PhaseLoad, "build info for", ref.QualifiedName())
		}
		return "", errors.IO(errors.PhaseLoad, dbg, err)
	}
	var d debugFile
	if err := json.Unmarshal(data, &d); err != nil || d.BuildInfo == "" {
		return "", errors.InvalidData(errors.PhaseLoad, []string{dbg}, "debug file has no buildInfo path")
	}
	return path.Join(path.Dir(ref.Path), d.BuildInfo), nil
}

func (s *Store) loadRef(ref Ref) (*layout.StorageLayout, error) {
	name := ref.QualifiedName()

	p, err := s.buildInfoPath(ref)
	if err != nil {
		return nil, err
	}
	data, err := fs.ReadFile(s.fsys, p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errors.NotFound(errors.PhaseLoad, "build info", p)
		}
		return nil, errors.IO(errors.PhaseLoad, p, err)
	}

	var info buildInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, errors.New(errors.PhaseLoad, errors.KindInvalidData).
			Source(p).
			Cause(err).
			Detail("build info is not valid JSON").
			Build()
	}

	contract, ok := info.Output.Contracts[ref.SourceName][ref.ContractName]
	if !ok {
		return nil, errors.NotFound(errors.PhaseLoad, "contract in build info", name)
	}
	if len(contract.StorageLayout) == 0 || string(contract.StorageLayout) == "null" {
		return nil, errors.InvalidLayout(name, nil, "compiler output has no storageLayout; add it to outputSelection")
	}

	Logger().Debug("loading layout from build info",
		zap.String("contract", name),
		zap.String("buildInfo", p))

	return layout.Parse(contract.StorageLayout, name)
}

package storagelayout

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/storage-layout/artifact"
	"github.com/wippyai/storage-layout/config"
	"github.com/wippyai/storage-layout/export"
	"github.com/wippyai/storage-layout/revision"
)

// Project gives access to the artifacts of the working tree and of past revisions.
// Worktrees created for revisions live until Close.
type Project struct {
	cfg config.Config
	log *zap.Logger

	mu        sync.Mutex
	stores    map[string]*artifact.Store
	worktrees []*revision.Worktree
}

// Open returns a Project for cfg.
func Open(cfg config.Config, log *zap.Logger) *Project {
	if log == nil {
		log = zap.NewNop()
	}
	return &Project{
		cfg:    cfg,
		log:    log,
		stores: make(map[string]*artifact.Store),
	}
}

// Config returns the settings the project was opened with.
func (p *Project) Config() config.Config {
	return p.cfg
}

// Store returns the artifact store for rev. An empty rev is the working tree, compiled
// in place with the configured command on first use unless NoCompile is set; any other
// rev is checked out into a worktree and always compiled there.
func (p *Project) Store(ctx context.Context, rev string) (*artifact.Store, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if s, ok := p.stores[rev]; ok {
		return s, nil
	}

	if rev == "" {
		if p.cfg.Compile != "" && !p.cfg.NoCompile {
			p.log.Info("compiling working tree", zap.String("command", p.cfg.Compile))
			if err := revision.Compile(ctx, p.cfg.Root, revision.Options{Compile: p.cfg.Compile}); err != nil {
				return nil, err
			}
		}
		s := artifact.Open(p.cfg.Root, p.cfg.Artifacts)
		p.stores[rev] = s
		return s, nil
	}

	p.log.Info("checking out revision", zap.String("rev", rev))
	w, err := revision.Checkout(ctx, p.cfg.Root, rev, revision.Options{Compile: p.cfg.Compile})
	if err != nil {
		return nil, err
	}
	p.worktrees = append(p.worktrees, w)

	s := artifact.Open(w.Dir(), p.cfg.Artifacts)
	p.stores[rev] = s
	return s, nil
}

// Target resolves name in the store for rev.
func (p *Project) Target(ctx context.Context, name, rev string) (Target, error) {
	s, err := p.Store(ctx, rev)
	if err != nil {
		return Target{}, err
	}
	return Target{Loader: s, Name: name}, nil
}

// SavedTarget names a layout file relative to the working tree, such as an earlier export.
func (p *Project) SavedTarget(file string) Target {
	return Target{Loader: artifact.Open(p.cfg.Root, p.cfg.Artifacts), Name: file}
}

// Export writes the working tree's layouts as configured.
func (p *Project) Export(ctx context.Context) ([]string, error) {
	s, err := p.Store(ctx, "")
	if err != nil {
		return nil, err
	}
	return export.Run(ctx, s, export.Options{
		Root:    p.cfg.Root,
		Path:    p.cfg.Path,
		Clear:   p.cfg.Clear,
		Flat:    p.cfg.Flat,
		Only:    p.cfg.Only,
		Except:  p.cfg.Except,
		Where:   p.cfg.Where,
		Spacing: p.cfg.Spacing,
	})
}

// Close removes every worktree created by Store.
func (p *Project) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var first error
	for _, w := range p.worktrees {
		if err := w.Close(); err != nil && first == nil {
			first = err
		}
	}
	p.worktrees = nil
	p.stores = make(map[string]*artifact.Store)
	return first
}

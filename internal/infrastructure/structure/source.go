package structure

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/turtacn/molgrid/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/molgrid/pkg/errors"
	mtypes "github.com/turtacn/molgrid/pkg/types/molecule"
)

// Source opens files addressed relative to a root (a directory or an
// object-store prefix).
type Source interface {
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	// Describe returns a human-readable location for logs and errors.
	Describe() string
}

// DirSource reads from the local file system.
type DirSource struct {
	root string
}

// NewDirSource returns a Source rooted at root. An empty root means the
// working directory. The root is made absolute so Describe identifies the
// same files from any working directory.
func NewDirSource(root string) *DirSource {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	return &DirSource{root: root}
}

func (s *DirSource) Open(_ context.Context, name string) (io.ReadCloser, error) {
	p := name
	if !filepath.IsAbs(name) {
		p = filepath.Join(s.root, name)
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStructureUnreadable, "open file").WithDetail(p)
	}
	return f, nil
}

func (s *DirSource) Describe() string { return s.root }

// Loader reads structures from a Source. It satisfies
// molecule.StructureLoader.
type Loader struct {
	source Source
	logger logging.Logger
}

// NewLoader returns a Loader over source.
func NewLoader(source Source, logger logging.Logger) *Loader {
	return &Loader{source: source, logger: logger}
}

// Load opens id on the source and decodes it by extension.
func (l *Loader) Load(ctx context.Context, id string) ([]mtypes.AtomRecord, error) {
	start := time.Now()
	rc, err := l.source.Open(ctx, id)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	recs, err := Decode(id, rc)
	if err != nil {
		return nil, err
	}
	l.logger.Debug("structure decoded",
		logging.String("id", id),
		logging.String("source", l.source.Describe()),
		logging.Int("records", len(recs)),
		logging.Duration("elapsed", time.Since(start)),
	)
	return recs, nil
}

//Personal.AI order the ending

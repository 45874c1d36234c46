package molecule

import (
	"context"
	"time"

	mtypes "github.com/turtacn/molgrid/pkg/types/molecule"
)

// Role distinguishes the receptor and ligand halves of an example. The same
// file maps to different channels in each role.
type Role int

const (
	Receptor Role = iota
	Ligand
)

func (r Role) String() string {
	if r == Ligand {
		return "lig"
	}
	return "rec"
}

// IsLigand reports whether r is Ligand.
func (r Role) IsLigand() bool { return r == Ligand }

// Key returns the cache key of structure id in role r.
func (r Role) Key(id string) string { return r.String() + ":" + id }

// StructureLoader reads the atom records of a structure identified by id,
// typically a path relative to the configured root folder.
type StructureLoader interface {
	Load(ctx context.Context, id string) ([]mtypes.AtomRecord, error)
}

// GeometryStore is an optional tier shared between processes. Get returns an
// error carrying ErrCodeCacheMiss when key is absent.
type GeometryStore interface {
	Get(ctx context.Context, key string) (*MolInfo, error)
	Set(ctx context.Context, key string, m *MolInfo) error
}

// CacheObserver receives cache and parse events, usually for metrics.
type CacheObserver interface {
	ObserveCacheLookup(tier, result string)
	ObserveParse(role string, atoms int, elapsed time.Duration, err error)
}

type nopObserver struct{}

func (nopObserver) ObserveCacheLookup(string, string)              {}
func (nopObserver) ObserveParse(string, int, time.Duration, error) {}

//Personal.AI order the ending

package engine

import (
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/numahash/hashkv/internal/logging"
	"github.com/numahash/hashkv/internal/storage/hash"
	"github.com/numahash/hashkv/internal/storage/numapool"
	"github.com/numahash/hashkv/internal/storage/registry"
	"github.com/numahash/hashkv/internal/xct"
)

// Config controls how an Engine sizes its per-node page pools.
type Config struct {
	VolatilePagesPerNode int
	SnapshotPagesPerNode int
	Logger               *logging.Logger
}

// DefaultConfig returns reasonable pool sizes for local development and
// tests: small enough that pool-exhaustion scenarios are easy to trigger
// deliberately.
func DefaultConfig() Config {
	return Config{
		VolatilePagesPerNode: 4096,
		SnapshotPagesPerNode: 4096,
		Logger:               logging.Default(),
	}
}

// Engine is the top-level facade: NUMA topology, one numapool.Node per
// NUMA node, the storage registry, the epoch clock, and a logger. It is
// the thing a process creates exactly once at startup and hands out
// ThreadContext values from for each worker goroutine.
type Engine struct {
	// InstanceID distinguishes one process's log lines and savepoints from
	// another's across restarts; it is not persisted or compared against
	// anything, purely a diagnostic tag.
	InstanceID string
	Topology   []NodeTopology
	Nodes      []*numapool.Node
	Registry   *registry.Registry
	Epoch      *xct.EpochClock
	Logger     *logging.Logger

	ordinal atomic.Uint32
}

// NextOrdinal returns a fresh, process-wide monotonically increasing
// in-epoch ordinal for stamping a newly-committing XID. It does not reset
// across epoch boundaries; xct.XID only keeps the low 20 bits, which is
// immaterial for uniqueness within any one epoch's practical write volume.
func (e *Engine) NextOrdinal() uint32 {
	return e.ordinal.Add(1)
}

// New discovers NUMA topology, allocates one numapool.Node per discovered
// NUMA node sized per cfg, and wires an empty registry and a fresh epoch
// clock.
func New(cfg Config) *Engine {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	topo := DiscoverTopology(cfg.Logger)
	nodes := make([]*numapool.Node, len(topo))
	for i, t := range topo {
		nodes[i] = numapool.NewNode(t.ID, cfg.VolatilePagesPerNode, cfg.SnapshotPagesPerNode)
	}
	instanceID := uuid.NewString()
	cfg.Logger.Infof("engine: instance %s starting with %d NUMA node(s)", instanceID, len(topo))
	return &Engine{
		InstanceID: instanceID,
		Topology:   topo,
		Nodes:      nodes,
		Registry:   registry.New(),
		Epoch:      xct.NewEpochClock(),
		Logger:     cfg.Logger,
	}
}

// CreateStorage creates and registers a new hash storage named name with
// the given bin_bits, rooted on the NUMA node nodeHint (clamped to a valid
// index).
func (e *Engine) CreateStorage(name string, binBits uint8, nodeHint int) (*hash.HashStorage, error) {
	meta := hash.Metadata{Name: name, BinBits: binBits}
	hs, err := hash.Create(meta, e.Nodes, nodeHint)
	if err != nil {
		return nil, err
	}
	id, err := e.Registry.Register(name, hs.ControlBlock(), hashDirectoryOf(hs))
	if err != nil {
		return nil, err
	}
	hs.ControlBlock().Meta.ID = id
	e.Logger.Infof("engine: created storage %q (id=%d bin_bits=%d node=%d)", name, id, binBits, nodeHint)
	return hs, nil
}

// OpenStorage attaches a new handle to an already-registered storage.
func (e *Engine) OpenStorage(name string) (*hash.HashStorage, error) {
	cb, dir, err := e.Registry.Lookup(name)
	if err != nil {
		return nil, err
	}
	return hash.Load(cb, dir, e.Nodes)
}

// DropStorage marks a storage dead and removes it from the registry so no
// future OpenStorage can find it. In-flight handles already obtained keep
// working until their transactions finish.
func (e *Engine) DropStorage(name string) error {
	cb, _, err := e.Registry.Lookup(name)
	if err != nil {
		return err
	}
	if !cb.MarkForDeath() {
		return nil
	}
	e.Logger.Infof("engine: dropped storage %q", name)
	return e.Registry.Remove(name)
}

// hashDirectoryOf extracts the PageDirectory backing hs, for handing to the
// registry so a later OpenStorage can Load a second handle over the same
// tree. HashStorage exposes this via its ControlBlock-adjacent accessor
// rather than a public field, keeping the directory an implementation
// detail of the hash package.
func hashDirectoryOf(hs *hash.HashStorage) *hash.PageDirectory {
	return hs.Directory()
}

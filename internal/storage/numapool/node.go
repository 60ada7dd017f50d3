package numapool

// Node bundles one NUMA node's volatile and snapshot page populations. Read-
// mostly snapshot traffic draws from Snapshot while the write path draws
// from Volatile, so the two never starve each other.
type Node struct {
	ID       int
	Volatile *Pool
	Snapshot *Pool
}

// NewNode allocates both populations for one NUMA node with the given page
// capacities.
func NewNode(id int, volatileCapacity, snapshotCapacity int) *Node {
	return &Node{
		ID:       id,
		Volatile: NewPool(id, Volatile, volatileCapacity),
		Snapshot: NewPool(id, Snapshot, snapshotCapacity),
	}
}

// DumpFreeStat reports stats for both populations of this node.
func (n *Node) DumpFreeStat() []Stat {
	return []Stat{n.Volatile.DumpFreeStat(), n.Snapshot.DumpFreeStat()}
}

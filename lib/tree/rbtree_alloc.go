package tree

var (
	_ NodeAllocator[int] = HeapAllocator[int]{}
	_ NodeAllocator[int] = (*NodePool[int])(nil)
)

// HeapAllocator is the default allocator, nodes are left to the GC.
type HeapAllocator[V any] struct{}

func (HeapAllocator[V]) Alloc() *RBNode[V] {
	return &RBNode[V]{}
}

func (HeapAllocator[V]) Dealloc(*RBNode[V]) {}

// NodePool is a fixed capacity arena of nodes. All nodes are allocated
// once in a contiguous slice and recycled by a free list, Alloc returns
// nil if all of them are in use.
// Dealloc a node not allocated from the pool is a caller error.
type NodePool[V any] struct {
	nodes []RBNode[V]
	free  []*RBNode[V]
}

func NewNodePool[V any](capacity int) *NodePool[V] {
	if capacity < 0 {
		capacity = 0
	}
	pool := &NodePool[V]{
		nodes: make([]RBNode[V], capacity),
		free:  make([]*RBNode[V], 0, capacity),
	}
	for i := capacity - 1; i >= 0; i-- {
		pool.free = append(pool.free, &pool.nodes[i])
	}
	return pool
}

func (pool *NodePool[V]) Alloc() *RBNode[V] {
	size := len(pool.free)
	if size == 0 {
		return nil
	}
	node := pool.free[size-1]
	pool.free[size-1] = nil
	pool.free = pool.free[:size-1]
	return node
}

func (pool *NodePool[V]) Dealloc(node *RBNode[V]) {
	if node == nil || len(pool.free) == cap(pool.free) {
		return
	}
	// Drop the value reference before recycling.
	*node = RBNode[V]{}
	pool.free = append(pool.free, node)
}

func (pool *NodePool[V]) Cap() int {
	return len(pool.nodes)
}

func (pool *NodePool[V]) Available() int {
	return len(pool.free)
}

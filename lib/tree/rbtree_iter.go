package tree

type rbIterState uint8

const (
	iterUnpositioned rbIterState = iota
	iterValid
	iterBeforeFirst
	iterAfterLast
)

// RBIter walks a tree in both directions without parent links. The path
// holds the ancestors of the current node, it grows on demand and is
// pre-sized by the red-black height limit of the tree.
//
// The zero value is ready to use. The iterator becomes invalid once the
// tree is mutated, there is no detection of concurrent modification.
//
// Exhausted states:
//   - Next from after-last and Prev from before-first stay exhausted.
//   - Next from before-first re-anchors at First, Prev from after-last
//     re-anchors at Last.
type RBIter[V any] struct {
	tree     RBTree[V]
	node     *RBNode[V]
	path     []*RBNode[V]
	maxDepth int
	state    rbIterState
}

func NewRBIter[V any]() *RBIter[V] {
	return &RBIter[V]{}
}

func (it *RBIter[V]) Init() {
	clear(it.path)
	it.path = it.path[:0]
	it.tree = nil
	it.node = nil
	it.maxDepth = 0
	it.state = iterUnpositioned
}

// Value returns the value at the current position.
func (it *RBIter[V]) Value() (V, bool) {
	if it.state != iterValid {
		var zero V
		return zero, false
	}
	return it.node.value, true
}

// Depth is the number of ancestors of the current node on the path.
func (it *RBIter[V]) Depth() int {
	return len(it.path)
}

// MaxDepth is the deepest path seen since the last Init.
func (it *RBIter[V]) MaxDepth() int {
	return it.maxDepth
}

func (it *RBIter[V]) reset(tree RBTree[V]) {
	clear(it.path)
	it.path = it.path[:0]
	it.tree = tree
	it.node = nil
	if need := heightBound(tree.Len()); cap(it.path) < need {
		it.path = make([]*RBNode[V], 0, need)
	}
}

func (it *RBIter[V]) push(node *RBNode[V]) {
	it.path = append(it.path, node)
	if len(it.path) > it.maxDepth {
		it.maxDepth = len(it.path)
	}
}

func (it *RBIter[V]) pop() *RBNode[V] {
	size := len(it.path)
	if size == 0 {
		return nil
	}
	node := it.path[size-1]
	it.path[size-1] = nil
	it.path = it.path[:size-1]
	return node
}

func (it *RBIter[V]) exhaust(dir RBDirection) (V, bool) {
	clear(it.path)
	it.path = it.path[:0]
	it.node = nil
	if dir == Right {
		it.state = iterAfterLast
	} else {
		it.state = iterBeforeFirst
	}
	var zero V
	return zero, false
}

func (it *RBIter[V]) found(node *RBNode[V]) (V, bool) {
	it.node = node
	it.state = iterValid
	return node.value, true
}

// start descends to the extreme node in dir.
func (it *RBIter[V]) start(tree RBTree[V], dir RBDirection) (V, bool) {
	if tree == nil {
		it.Init()
		var zero V
		return zero, false
	}
	it.reset(tree)
	node := tree.Root()
	if node == nil {
		// Nothing ahead of the iterator in the walking direction.
		return it.exhaust(dir.opposite())
	}
	for ; node.link[dir] != nil; node = node.link[dir] {
		it.push(node)
	}
	return it.found(node)
}

// move steps to the in-order neighbour in dir.
func (it *RBIter[V]) move(dir RBDirection) (V, bool) {
	var zero V
	switch it.state {
	case iterValid:
	case iterBeforeFirst:
		if dir == Right {
			return it.start(it.tree, Left)
		}
		return zero, false
	case iterAfterLast:
		if dir == Left {
			return it.start(it.tree, Right)
		}
		return zero, false
	default:
		return zero, false
	}

	node := it.node
	if node.link[dir] != nil {
		it.push(node)
		for node = node.link[dir]; node.link[dir.opposite()] != nil; node = node.link[dir.opposite()] {
			it.push(node)
		}
		return it.found(node)
	}

	// Backtrack until we come up from the opposite side.
	for {
		last := node
		if node = it.pop(); node == nil {
			return it.exhaust(dir)
		}
		if last != node.link[dir] {
			return it.found(node)
		}
	}
}

func (it *RBIter[V]) First(tree RBTree[V]) (V, bool) {
	return it.start(tree, Left)
}

func (it *RBIter[V]) Last(tree RBTree[V]) (V, bool) {
	return it.start(tree, Right)
}

func (it *RBIter[V]) Next() (V, bool) {
	return it.move(Right)
}

func (it *RBIter[V]) Prev() (V, bool) {
	return it.move(Left)
}

// LowerBound positions the iterator at the first value not less than key.
func (it *RBIter[V]) LowerBound(tree RBTree[V], key V) (V, bool) {
	return it.bound(tree, key, true)
}

// UpperBound positions the iterator at the first value greater than key.
func (it *RBIter[V]) UpperBound(tree RBTree[V], key V) (V, bool) {
	return it.bound(tree, key, false)
}

// bound descends with the path and remembers the best candidate and its
// depth. The ancestors of the candidate are exactly the path prefix at
// that depth, so Next and Prev continue to work from it.
func (it *RBIter[V]) bound(tree RBTree[V], key V, inclusive bool) (V, bool) {
	if tree == nil {
		it.Init()
		var zero V
		return zero, false
	}
	it.reset(tree)

	var best *RBNode[V]
	bestDepth := 0
	for node := tree.Root(); node != nil; {
		res := tree.Compare(node.value, key)
		if inclusive && res == 0 {
			best, bestDepth = node, len(it.path)
			break
		}
		it.push(node)
		if res > 0 {
			best, bestDepth = node, len(it.path)-1
			node = node.link[Left]
		} else {
			node = node.link[Right]
		}
	}

	if best == nil {
		return it.exhaust(Right)
	}
	clear(it.path[bestDepth:])
	it.path = it.path[:bestDepth]
	return it.found(best)
}

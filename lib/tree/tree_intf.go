package tree

import "errors"

type RBColor uint8

const (
	Black RBColor = iota
	Red
)

func (c RBColor) String() string {
	if c == Red {
		return "Red"
	}
	return "Black"
}

type RBDirection uint8

const (
	Left RBDirection = iota
	Right
)

func (d RBDirection) opposite() RBDirection {
	return d ^ 1
}

var (
	ErrRBTreeKeyExists      = errors.New("[rbtree] key already exists")
	ErrRBTreeKeyNotFound    = errors.New("[rbtree] key not found")
	ErrRBTreeNoMemory       = errors.New("[rbtree] node allocator out of memory")
	ErrRBTreeNilNode        = errors.New("[rbtree] nil node")
	ErrRBTreeRedViolation   = errors.New("[rbtree] red violation")
	ErrRBTreeBlackViolation = errors.New("[rbtree] black violation")
	ErrRBTreeOrderViolation = errors.New("[rbtree] order violation")
)

// Comparator defines the strict weak ordering of the tree values.
// Values comparing equal are duplicates, whatever their identity is.
type Comparator[V any] func(a, b V) int

// NodeCallback is invoked with a node right before the tree hands it back
// to the allocator, so the caller could release what the value refers to.
type NodeCallback[V any] func(node *RBNode[V])

// NodeAllocator supplies the node memory strategy of a tree.
// Alloc returns nil if no node is available.
type NodeAllocator[V any] interface {
	Alloc() *RBNode[V]
	Dealloc(node *RBNode[V])
}

type RBTree[V any] interface {
	Len() int64
	Root() *RBNode[V]
	Info() any
	Compare(a, b V) int
	Find(value V) (V, bool)
	Insert(value V) error
	InsertNode(node *RBNode[V]) error
	Remove(value V) error
	RemoveWithCallback(value V, cb NodeCallback[V]) error
	Clear()
	ClearWithCallback(cb NodeCallback[V])
	Foreach(action func(idx int64, color RBColor, val V) bool)
}

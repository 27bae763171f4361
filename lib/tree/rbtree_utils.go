package tree

// rbtree rule validation utilities.

// References:
// https://en.wikipedia.org/wiki/Red%E2%80%93black_tree#Properties
// p1. Every node is either red or black.
// p2. All NIL nodes are considered black.
// p3. A red node does not have a red child. (red-violation)
// p4. Every path from a given node to any of its descendant
//   NIL nodes goes through the same number of black nodes. (black-violation)
// p5. The root is black.

// Validate checks the subtree rooted at node recursively and returns its
// black height, NIL leaves count as one. Only the parent-child order is
// checked here, RBTreeValidate checks the whole in-order sequence.
func Validate[V any](node *RBNode[V], cmp Comparator[V]) (int, error) {
	if node == nil {
		return 1, nil
	}

	l, r := node.link[Left], node.link[Right]
	if isRed(node) && (isRed(l) || isRed(r)) {
		return 0, ErrRBTreeRedViolation
	}
	if (l != nil && cmp(l.value, node.value) >= 0) ||
		(r != nil && cmp(r.value, node.value) <= 0) {
		return 0, ErrRBTreeOrderViolation
	}

	lh, err := Validate(l, cmp)
	if err != nil {
		return 0, err
	}
	rh, err := Validate(r, cmp)
	if err != nil {
		return 0, err
	}
	if lh != rh {
		return 0, ErrRBTreeBlackViolation
	}
	if isRed(node) {
		return lh, nil
	}
	return lh + 1, nil
}

// RBTreeValidate checks all properties of the tree, plus the strictly
// increasing in-order sequence and the size consistency.
func RBTreeValidate[V any](tree RBTree[V]) error {
	if isRed(tree.Root()) {
		return ErrRBTreeRedViolation
	}
	if _, err := Validate(tree.Root(), tree.Compare); err != nil {
		return err
	}

	var (
		prev    V
		count   int64
		ordered = true
	)
	tree.Foreach(func(idx int64, color RBColor, val V) bool {
		if idx > 0 && tree.Compare(prev, val) >= 0 {
			ordered = false
			return false
		}
		prev = val
		count++
		return true
	})
	if !ordered || count != tree.Len() {
		return ErrRBTreeOrderViolation
	}
	return nil
}

// Inorder traversal to validate the red rule.
func RedViolationValidate[V any](tree RBTree[V]) error {
	aux := tree.Root()
	if isRed(aux) {
		return ErrRBTreeRedViolation
	}

	stack := make([]*RBNode[V], 0, heightBound(tree.Len()))
	defer func() {
		clear(stack)
	}()

	for ; aux != nil; aux = aux.link[Left] {
		stack = append(stack, aux)
	}
	for size := len(stack); size > 0; size = len(stack) {
		aux = stack[size-1]
		if isRed(aux) && (isRed(aux.link[Left]) || isRed(aux.link[Right])) {
			return ErrRBTreeRedViolation
		}
		stack = stack[:size-1]
		for aux = aux.link[Right]; aux != nil; aux = aux.link[Left] {
			stack = append(stack, aux)
		}
	}
	return nil
}

/*
<X> is a RED node.
[X] is a BLACK node (or NIL).

	        [13]
			/  \
		 <8>    [15]
		 / \    /  \
	  [6] [11] [14] [17]
	  /              /
	<1>            [16]

Each NIL leaf to root node black depth are equal.
The DFS carries the black depth of every node with it.
*/
func BlackViolationValidate[V any](tree RBTree[V]) error {
	root := tree.Root()
	if root == nil {
		return nil
	}

	type item struct {
		node  *RBNode[V]
		depth int
	}
	stack := make([]item, 0, heightBound(tree.Len()))
	defer func() {
		clear(stack)
	}()

	expected := -1
	stack = append(stack, item{node: root, depth: 1})
	for size := len(stack); size > 0; size = len(stack) {
		it := stack[size-1]
		stack = stack[:size-1]
		for _, child := range it.node.link {
			if child == nil {
				if expected < 0 {
					expected = it.depth
				} else if expected != it.depth {
					return ErrRBTreeBlackViolation
				}
				continue
			}
			depth := it.depth
			if isBlack(child) {
				depth++
			}
			stack = append(stack, item{node: child, depth: depth})
		}
	}
	return nil
}

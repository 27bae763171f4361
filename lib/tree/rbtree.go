package tree

import "math/bits"

// RBNode has no parent link. The ancestors are tracked by explicit stacks
// during removal and iteration instead.
type RBNode[V any] struct {
	link  [2]*RBNode[V]
	value V
	color RBColor
}

// NewRBNode builds a detached node for RBTree.InsertNode.
func NewRBNode[V any](value V) *RBNode[V] {
	return &RBNode[V]{value: value, color: Red}
}

func (node *RBNode[V]) Value() V {
	return node.value
}

func (node *RBNode[V]) Color() RBColor {
	return node.color
}

func (node *RBNode[V]) Left() *RBNode[V] {
	if node == nil {
		return nil
	}
	return node.link[Left]
}

func (node *RBNode[V]) Right() *RBNode[V] {
	if node == nil {
		return nil
	}
	return node.link[Right]
}

func isRed[V any](node *RBNode[V]) bool {
	return node != nil && node.color == Red
}

func isBlack[V any](node *RBNode[V]) bool {
	return node == nil || node.color == Black
}

/*
		 |                         |
		 X                         S
		/ \      rotate(X, L)     / \
	   L   S    ============>    X   Sd
		  / \                   / \
		Sc   Sd                L   Sc

rotate turns the subtree rooted at X towards dir and returns
the new subtree root. Colors are left to the caller.
*/
func rotate[V any](x *RBNode[V], dir RBDirection) *RBNode[V] {
	opp := dir.opposite()
	y := x.link[opp]
	if y == nil {
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] rotate node x without child to lift")
	}
	x.link[opp] = y.link[dir]
	y.link[dir] = x
	return y
}

// rbStep records an ancestor and the direction taken from it.
type rbStep[V any] struct {
	node *RBNode[V]
	dir  RBDirection
}

type rbTree[V any] struct {
	root           *RBNode[V]
	count          int64
	cmp            Comparator[V]
	alloc          NodeAllocator[V]
	info           any
	path           []rbStep[V]
	isRmBorrowSucc bool
}

func (tree *rbTree[V]) Len() int64 {
	return tree.count
}

func (tree *rbTree[V]) Root() *RBNode[V] {
	return tree.root
}

func (tree *rbTree[V]) Info() any {
	return tree.info
}

func (tree *rbTree[V]) Compare(a, b V) int {
	return tree.cmp(a, b)
}

func (tree *rbTree[V]) search(value V) *RBNode[V] {
	for aux := tree.root; aux != nil; {
		res := tree.cmp(value, aux.value)
		if res == 0 {
			return aux
		} else if res > 0 {
			aux = aux.link[Right]
		} else {
			aux = aux.link[Left]
		}
	}
	return nil
}

func (tree *rbTree[V]) Find(value V) (V, bool) {
	if node := tree.search(value); node != nil {
		return node.value, true
	}
	var zero V
	return zero, false
}

// Insert rejects duplicates before asking the allocator, so a failed
// insertion never touches the tree nor the allocator.
func (tree *rbTree[V]) Insert(value V) error {
	if tree.search(value) != nil {
		return ErrRBTreeKeyExists
	}
	node := tree.alloc.Alloc()
	if node == nil {
		return ErrRBTreeNoMemory
	}
	node.value = value
	tree.insertTopDown(node)
	return nil
}

func (tree *rbTree[V]) InsertNode(node *RBNode[V]) error {
	if node == nil {
		return ErrRBTreeNilNode
	}
	if tree.search(node.value) != nil {
		return ErrRBTreeKeyExists
	}
	tree.insertTopDown(node)
	return nil
}

/*
Single pass top-down insertion. Walking down from the root,
every node X with two red children is split before descending.
The new node Z is red by default.

<X> is a RED node.
[X] is a BLACK node (or NIL).

im1: color flip, X takes the red from its children.

	    [X]             <X>
	    / \             / \
	  <L> <R>  ====>  [L] [R]

im2: X is red and its parent P is red, X is the same direction
as P. Rotate the grandpa G to the opposite direction.

	    [G]                 [P]
	    / \    rotate(G)    / \
	  <P> [U]  ========>  <X> <G>
	  /                         \
	<X>                         [U]

im3: X is red and its parent P is red, X is the opposite direction
to P. Lift X over P first, then over G.

	  [G]                 [G]                 [X]
	  / \    rotate(P)    / \    rotate(G)    / \
	<P> [U]  ========>  <X> [U]  ========>  <P> <G>
	  \                 /                         \
	  <X>             <P>                         [U]

The red uncle case of the bottom-up algorithm never appears here,
because the uncle was split before descending to X.
*/
func (tree *rbTree[V]) insertTopDown(z *RBNode[V]) {
	z.link = [2]*RBNode[V]{}
	z.color = Red
	tree.count++
	if /* empty */ tree.root == nil {
		z.color = Black
		tree.root = z
		return
	}

	// head is a false root, so the real root is able to be rotated as well.
	head := RBNode[V]{}
	head.link[Right] = tree.root
	var g, p *RBNode[V]
	t, q := &head, tree.root
	dir, last := Left, Left
	for {
		if q == nil {
			q = z
			p.link[dir] = q
		} else if /* im1 */ isRed(q.link[Left]) && isRed(q.link[Right]) {
			q.color = Red
			q.link[Left].color = Black
			q.link[Right].color = Black
		}

		if isRed(q) && isRed(p) {
			dir2 := Left
			if t.link[Right] == g {
				dir2 = Right
			}
			if /* im2 */ q == p.link[last] {
				t.link[dir2] = rotate(g, last.opposite())
				p.color = Black
			} else /* im3 */ {
				g.link[last] = rotate(p, last)
				t.link[dir2] = rotate(g, last.opposite())
				q.color = Black
			}
			g.color = Red
		}

		if q == z {
			break
		}
		last = dir
		if tree.cmp(q.value, z.value) < 0 {
			dir = Right
		} else {
			dir = Left
		}
		if g != nil {
			t = g
		}
		g, p, q = p, q, q.link[dir]
	}

	tree.root = head.link[Right]
	tree.root.color = Black
}

func (tree *rbTree[V]) Remove(value V) error {
	return tree.RemoveWithCallback(value, nil)
}

func (tree *rbTree[V]) RemoveWithCallback(value V, cb NodeCallback[V]) error {
	node := tree.removeNode(value)
	if node == nil {
		return ErrRBTreeKeyNotFound
	}
	if cb != nil {
		cb(node)
	}
	tree.alloc.Dealloc(node)
	return nil
}

// relink hangs x on the slot below path[k], or on the root if k < 0.
func (tree *rbTree[V]) relink(path []rbStep[V], k int, x *RBNode[V]) {
	if k < 0 {
		tree.root = x
		return
	}
	path[k].node.link[path[k].dir] = x
}

/*
r1: Z has at most one child X, X takes the Z's place directly.

r2: Z has left and right children.
Find Z's pred (or succ) Y. Y is relinked into Z's place and
takes Z's color, so the removed position is the Y's old one.
Values are never swapped, the node handed back is always the
node holding the removed value.

Find succ:

	  |                    |
	  Z                    Y
	 / \                  / \
	L  ..   relink(Y)    L  ..
		|   =========>       |
		P                    P
	   / \                  / \
	  Y  ..                X  ..
	   \
	    X

If the removed color is black and X is red, repaint X into black.
If the removed color is black and X is black, rebalance from X.
*/
func (tree *rbTree[V]) removeNode(value V) *RBNode[V] {
	path := tree.path[:0]
	defer func() {
		clear(path)
		tree.path = path[:0]
	}()

	z := tree.root
	for z != nil {
		res := tree.cmp(value, z.value)
		if res == 0 {
			break
		}
		dir := Left
		if res > 0 {
			dir = Right
		}
		path = append(path, rbStep[V]{node: z, dir: dir})
		z = z.link[dir]
	}
	if z == nil {
		return nil
	}

	var x *RBNode[V]
	removedColor := z.color
	if /* r2 */ z.link[Left] != nil && z.link[Right] != nil {
		borrow := Left
		if tree.isRmBorrowSucc {
			borrow = Right
		}
		zIdx := len(path)
		path = append(path, rbStep[V]{node: z, dir: borrow})
		y := z.link[borrow]
		for y.link[borrow.opposite()] != nil {
			path = append(path, rbStep[V]{node: y, dir: borrow.opposite()})
			y = y.link[borrow.opposite()]
		}
		removedColor = y.color
		x = y.link[borrow]
		tree.relink(path, len(path)-1, x)
		y.link, y.color = z.link, z.color
		tree.relink(path, zIdx-1, y)
		path[zIdx].node = y
	} else /* r1 */ {
		if x = z.link[Left]; x == nil {
			x = z.link[Right]
		}
		tree.relink(path, len(path)-1, x)
	}
	z.link = [2]*RBNode[V]{}
	tree.count--

	if removedColor == Black {
		if isRed(x) {
			x.color = Black
		} else {
			path = tree.removeRebalance(path)
		}
	}
	if tree.root != nil {
		tree.root.color = Black
	}
	return z
}

/*
The slot below path[top] (X, maybe NIL) lacks one black.

<X> is a RED node.
[X] is a BLACK node (or NIL).
{X} is either a RED node or a BLACK node.

Sc is the same direction to X and it is X's sibling's child node.
Sd is the opposite direction to X and it is X's sibling's child node.

rm1: X's sibling S is red, so the parent P, Sc and Sd must be black.
Rotate P towards X, repaint S into black, P into red. Then X has a
black sibling (the old Sc), enter rm2-rm5.

	  [P]                   <S>               [S]
	  / \    rotate(P)      / \    repaint    / \
	[X] <S>  ==========>  [P] [Sd]  ======>  <P> [Sd]
	    / \               / \               / \
	 [Sc] [Sd]          [X] [Sc]          [X] [Sc]

rm2: P is red, S, Sc and Sd are black. Swap P and S colors, done.

rm3: P, S, Sc and Sd are all black. Repaint S into red, P lacks
one black now, recursive to handle P.

rm4: S is black, Sc is red and Sd is black. Rotate S away from X,
repaint Sc into black and S into red. Enter rm5.

	  {P}                   {P}
	  / \    rotate(S)      / \
	[X] [S]  ==========>  [X] [Sc]
	    / \                     \
	  <Sc> [Sd]                 <S>
	                              \
	                              [Sd]

rm5: S is black and Sd is red. Rotate P towards X, S takes P's
color, P and Sd are repainted into black.

	  {P}                   {S}
	  / \    rotate(P)      / \
	[X] [S]  ==========>  [P] [Sd]
	    / \               / \
	 [Sc] <Sd>          [X] [Sc]
*/
func (tree *rbTree[V]) removeRebalance(path []rbStep[V]) []rbStep[V] {
	for top := len(path) - 1; top >= 0; {
		p, dir := path[top].node, path[top].dir
		sibling := p.link[dir.opposite()]
		if sibling == nil {
			// impossible run to here
			panic( /* debug assertion */ "[rbtree] remove black violation without sibling")
		}
		if /* rm1 */ isRed(sibling) {
			tree.relink(path, top-1, rotate(p, dir))
			sibling.color = Black
			p.color = Red
			path = append(path[:top], rbStep[V]{node: sibling, dir: dir}, rbStep[V]{node: p, dir: dir})
			top++
			sibling = p.link[dir.opposite()]
		}

		sc, sd := sibling.link[dir], sibling.link[dir.opposite()]
		if isBlack(sc) && isBlack(sd) {
			sibling.color = Red
			if /* rm2 */ isRed(p) {
				p.color = Black
				return path
			}
			/* rm3 */
			top--
			continue
		}

		if /* rm4 */ isBlack(sd) {
			p.link[dir.opposite()] = rotate(sibling, dir.opposite())
			sc.color = Black
			sibling.color = Red
			sibling, sd = sc, sibling
		}

		/* rm5 */
		tree.relink(path, top-1, rotate(p, dir))
		sibling.color = p.color
		p.color = Black
		sd.color = Black
		return path
	}
	return path
}

func (tree *rbTree[V]) Clear() {
	tree.ClearWithCallback(nil)
}

// ClearWithCallback releases every node without an auxiliary stack.
// Left children are rotated up until the node on top has no left child,
// then that node is released and the walk continues on its right.
func (tree *rbTree[V]) ClearWithCallback(cb NodeCallback[V]) {
	aux := tree.root
	tree.root = nil
	for aux != nil {
		var next *RBNode[V]
		if l := aux.link[Left]; l == nil {
			next = aux.link[Right]
			aux.link = [2]*RBNode[V]{}
			tree.count--
			if cb != nil {
				cb(aux)
			}
			tree.alloc.Dealloc(aux)
		} else {
			next = l
			aux.link[Left] = l.link[Right]
			l.link[Right] = aux
		}
		aux = next
	}
	tree.count = 0
}

// Inorder traversal to implement the DFS.
func (tree *rbTree[V]) Foreach(action func(idx int64, color RBColor, val V) bool) {
	aux := tree.root
	if aux == nil || action == nil {
		return
	}

	stack := make([]*RBNode[V], 0, heightBound(tree.count))
	defer func() {
		clear(stack)
	}()

	for ; aux != nil; aux = aux.link[Left] {
		stack = append(stack, aux)
	}

	idx := int64(0)
	for size := len(stack); size > 0; size = len(stack) {
		if aux = stack[size-1]; !action(idx, aux.color, aux.value) {
			return
		}
		idx++
		stack = stack[:size-1]
		for aux = aux.link[Right]; aux != nil; aux = aux.link[Left] {
			stack = append(stack, aux)
		}
	}
}

// heightBound is the red-black height limit 2*log2(n+1).
func heightBound(n int64) int {
	if n < 0 {
		n = 0
	}
	return 2 * bits.Len64(uint64(n)+1)
}

type RBTreeOpt[V any] func(*rbTree[V])

// WithRBTreeDesc reverses the comparator, so the traversal is descending.
func WithRBTreeDesc[V any]() RBTreeOpt[V] {
	return func(tree *rbTree[V]) {
		cmp := tree.cmp
		tree.cmp = func(a, b V) int {
			return cmp(b, a)
		}
	}
}

func WithRBTreeRemoveBorrowSucc[V any]() RBTreeOpt[V] {
	return func(tree *rbTree[V]) {
		tree.isRmBorrowSucc = true
	}
}

func WithRBTreeAllocator[V any](alloc NodeAllocator[V]) RBTreeOpt[V] {
	return func(tree *rbTree[V]) {
		if alloc != nil {
			tree.alloc = alloc
		}
	}
}

// WithRBTreeInfo attaches a caller context, the tree never reads it.
func WithRBTreeInfo[V any](info any) RBTreeOpt[V] {
	return func(tree *rbTree[V]) {
		tree.info = info
	}
}

func NewRBTree[V any](cmp Comparator[V], opts ...RBTreeOpt[V]) RBTree[V] {
	if cmp == nil {
		panic( /* debug assertion */ "[rbtree] nil comparator")
	}
	tree := &rbTree[V]{
		cmp:   cmp,
		alloc: HeapAllocator[V]{},
	}
	for _, o := range opts {
		if o != nil {
			o(tree)
		}
	}
	return tree
}

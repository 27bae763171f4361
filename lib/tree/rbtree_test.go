package tree

import (
	randv2 "math/rand/v2"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/benz9527/xpal/lib/infra"
)

type checkData struct {
	color RBColor
	key   uint64
}

func requireTreeLayout(t *testing.T, tree RBTree[uint64], expected []checkData) {
	t.Helper()
	require.Equal(t, int64(len(expected)), tree.Len())
	tree.Foreach(func(idx int64, color RBColor, val uint64) bool {
		require.Equal(t, expected[idx].color, color)
		require.Equal(t, expected[idx].key, val)
		return true
	})
	require.NoError(t, RedViolationValidate(tree))
	require.NoError(t, BlackViolationValidate(tree))
	require.NoError(t, RBTreeValidate(tree))
}

type countingAllocator[V any] struct {
	allocs, deallocs int
}

func (a *countingAllocator[V]) Alloc() *RBNode[V] {
	a.allocs++
	return &RBNode[V]{}
}

func (a *countingAllocator[V]) Dealloc(*RBNode[V]) {
	a.deallocs++
}

func TestRbtreeInsertAndRemove_Pred(t *testing.T) {
	tree := NewRBTree[uint64](infra.OrderedKeyCompare[uint64])

	require.NoError(t, tree.Insert(52))
	requireTreeLayout(t, tree, []checkData{{Black, 52}})

	require.NoError(t, tree.Insert(47))
	requireTreeLayout(t, tree, []checkData{{Red, 47}, {Black, 52}})

	require.NoError(t, tree.Insert(3))
	requireTreeLayout(t, tree, []checkData{{Red, 3}, {Black, 47}, {Red, 52}})

	require.NoError(t, tree.Insert(35))
	requireTreeLayout(t, tree, []checkData{{Black, 3}, {Red, 35}, {Black, 47}, {Black, 52}})

	require.NoError(t, tree.Insert(24))
	requireTreeLayout(t, tree, []checkData{{Red, 3}, {Black, 24}, {Red, 35}, {Black, 47}, {Black, 52}})

	// remove

	require.NoError(t, tree.Remove(24))
	requireTreeLayout(t, tree, []checkData{{Black, 3}, {Red, 35}, {Black, 47}, {Black, 52}})

	require.NoError(t, tree.Remove(47))
	requireTreeLayout(t, tree, []checkData{{Black, 3}, {Black, 35}, {Black, 52}})

	require.NoError(t, tree.Remove(52))
	requireTreeLayout(t, tree, []checkData{{Red, 3}, {Black, 35}})

	require.NoError(t, tree.Remove(3))
	requireTreeLayout(t, tree, []checkData{{Black, 35}})

	require.NoError(t, tree.Remove(35))
	require.Equal(t, int64(0), tree.Len())
	require.Nil(t, tree.Root())
}

func TestRbtreeRemove_Succ(t *testing.T) {
	tree := NewRBTree[uint64](infra.OrderedKeyCompare[uint64], WithRBTreeRemoveBorrowSucc[uint64]())
	for _, key := range []uint64{52, 47, 3, 35, 24} {
		require.NoError(t, tree.Insert(key))
	}
	requireTreeLayout(t, tree, []checkData{{Red, 3}, {Black, 24}, {Red, 35}, {Black, 47}, {Black, 52}})

	require.NoError(t, tree.Remove(24))
	requireTreeLayout(t, tree, []checkData{{Red, 3}, {Black, 35}, {Black, 47}, {Black, 52}})
}

func TestRbtree_Find(t *testing.T) {
	tree := NewRBTree[uint64](infra.OrderedKeyCompare[uint64])
	_, ok := tree.Find(1)
	require.False(t, ok)

	for i := uint64(0); i < 100; i += 2 {
		require.NoError(t, tree.Insert(i))
	}
	for i := uint64(0); i < 100; i++ {
		val, ok := tree.Find(i)
		require.Equal(t, i%2 == 0, ok)
		if ok {
			require.Equal(t, i, val)
		}
	}
}

func TestRbtree_Duplicate(t *testing.T) {
	type pair struct {
		key, val int
	}
	alloc := &countingAllocator[pair]{}
	tree := NewRBTree[pair](
		func(a, b pair) int { return infra.OrderedKeyCompare(a.key, b.key) },
		WithRBTreeAllocator[pair](alloc),
	)

	require.NoError(t, tree.Insert(pair{1, 100}))
	require.Equal(t, 1, alloc.allocs)

	// Equality is decided by the comparator only.
	require.ErrorIs(t, tree.Insert(pair{1, 200}), ErrRBTreeKeyExists)
	require.Equal(t, 1, alloc.allocs)
	require.Equal(t, int64(1), tree.Len())
	val, ok := tree.Find(pair{key: 1})
	require.True(t, ok)
	require.Equal(t, 100, val.val)

	require.ErrorIs(t, tree.InsertNode(NewRBNode(pair{1, 300})), ErrRBTreeKeyExists)
	require.Equal(t, int64(1), tree.Len())

	require.ErrorIs(t, tree.Remove(pair{key: 2}), ErrRBTreeKeyNotFound)
	require.Equal(t, 0, alloc.deallocs)
	require.NoError(t, tree.Remove(pair{key: 1}))
	require.Equal(t, 1, alloc.deallocs)
	require.ErrorIs(t, tree.Remove(pair{key: 1}), ErrRBTreeKeyNotFound)
}

func TestRbtree_NodePoolNoMemory(t *testing.T) {
	pool := NewNodePool[int](3)
	tree := NewRBTree[int](infra.OrderedKeyCompare[int], WithRBTreeAllocator[int](pool))
	require.Equal(t, 3, pool.Cap())

	for i := 0; i < 3; i++ {
		require.NoError(t, tree.Insert(i))
	}
	require.Equal(t, 0, pool.Available())
	require.ErrorIs(t, tree.Insert(3), ErrRBTreeNoMemory)
	require.Equal(t, int64(3), tree.Len())
	require.NoError(t, RBTreeValidate(tree))

	// A duplicate is reported before the allocator is asked.
	require.ErrorIs(t, tree.Insert(1), ErrRBTreeKeyExists)

	require.NoError(t, tree.Remove(0))
	require.Equal(t, 1, pool.Available())
	require.NoError(t, tree.Insert(3))
	require.NoError(t, RBTreeValidate(tree))

	var released []int
	tree.ClearWithCallback(func(node *RBNode[int]) {
		released = append(released, node.Value())
	})
	sort.Ints(released)
	require.Equal(t, []int{1, 2, 3}, released)
	require.Equal(t, int64(0), tree.Len())
	require.Equal(t, 3, pool.Available())
}

func TestRbtree_InsertNode(t *testing.T) {
	tree := NewRBTree[int](infra.OrderedKeyCompare[int])
	require.ErrorIs(t, tree.InsertNode(nil), ErrRBTreeNilNode)

	nodes := make([]RBNode[int], 64)
	for i := range nodes {
		nodes[i].value = i
		require.NoError(t, tree.InsertNode(&nodes[i]))
		require.NoError(t, RBTreeValidate(tree))
	}
	require.Equal(t, int64(len(nodes)), tree.Len())

	// The node handed back is the node holding the removed value,
	// even if it has two children.
	for _, i := range randv2.Perm(len(nodes)) {
		var removed *RBNode[int]
		require.NoError(t, tree.RemoveWithCallback(i, func(node *RBNode[int]) {
			removed = node
		}))
		require.Same(t, &nodes[i], removed)
		require.Equal(t, i, removed.Value())
		require.Nil(t, removed.Left())
		require.Nil(t, removed.Right())
		require.NoError(t, RBTreeValidate(tree))
	}
	require.Equal(t, int64(0), tree.Len())
}

func TestRbtree_Clear(t *testing.T) {
	alloc := &countingAllocator[int]{}
	tree := NewRBTree[int](
		infra.OrderedKeyCompare[int],
		WithRBTreeAllocator[int](alloc),
		WithRBTreeInfo[int]("clear"),
	)
	require.Equal(t, "clear", tree.Info())
	for _, i := range randv2.Perm(1000) {
		require.NoError(t, tree.Insert(i))
	}
	tree.Clear()
	require.Equal(t, int64(0), tree.Len())
	require.Nil(t, tree.Root())
	require.Equal(t, 1000, alloc.deallocs)

	// Still usable after clear.
	require.NoError(t, tree.Insert(7))
	require.NoError(t, RBTreeValidate(tree))
}

func TestRbtree_Desc(t *testing.T) {
	tree := NewRBTree[int](infra.OrderedKeyCompare[int], WithRBTreeDesc[int]())
	for _, i := range randv2.Perm(100) {
		require.NoError(t, tree.Insert(i))
	}
	tree.Foreach(func(idx int64, color RBColor, val int) bool {
		require.Equal(t, 99-int(idx), val)
		return true
	})
	require.NoError(t, RBTreeValidate(tree))
}

func TestRbtree_ValidateViolations(t *testing.T) {
	cmp := Comparator[int](infra.OrderedKeyCompare[int])

	redRed := &RBNode[int]{value: 2, color: Black}
	redRed.link[Left] = &RBNode[int]{value: 1, color: Red}
	redRed.link[Left].link[Left] = &RBNode[int]{value: 0, color: Red}
	_, err := Validate(redRed, cmp)
	require.ErrorIs(t, err, ErrRBTreeRedViolation)

	unbalanced := &RBNode[int]{value: 1, color: Black}
	unbalanced.link[Left] = &RBNode[int]{value: 0, color: Black}
	_, err = Validate(unbalanced, cmp)
	require.ErrorIs(t, err, ErrRBTreeBlackViolation)

	unordered := &RBNode[int]{value: 1, color: Black}
	unordered.link[Left] = &RBNode[int]{value: 2, color: Red}
	_, err = Validate(unordered, cmp)
	require.ErrorIs(t, err, ErrRBTreeOrderViolation)

	valid := &RBNode[int]{value: 1, color: Black}
	valid.link[Left] = &RBNode[int]{value: 0, color: Red}
	valid.link[Right] = &RBNode[int]{value: 2, color: Red}
	height, err := Validate(valid, cmp)
	require.NoError(t, err)
	require.Equal(t, 2, height)

	tree := &rbTree[int]{cmp: cmp, alloc: HeapAllocator[int]{}, root: unbalanced, count: 2}
	require.ErrorIs(t, BlackViolationValidate[int](tree), ErrRBTreeBlackViolation)
	tree.root, tree.count = redRed, 3
	require.ErrorIs(t, RedViolationValidate[int](tree), ErrRBTreeRedViolation)
	tree.root, tree.count = valid, 4
	require.ErrorIs(t, RBTreeValidate[int](tree), ErrRBTreeOrderViolation)
}

func rbtreeRandomInsertAndRemoveRunCore(t *testing.T, total int, rmBySucc bool, violationCheck bool) {
	opts := []RBTreeOpt[uint64]{}
	if rmBySucc {
		opts = append(opts, WithRBTreeRemoveBorrowSucc[uint64]())
	}
	tree := NewRBTree[uint64](infra.OrderedKeyCompare[uint64], opts...)

	inserted := make(map[uint64]struct{}, total)
	elements := make([]uint64, 0, total)
	for len(elements) < total {
		num := randv2.Uint64N(uint64(total) * 4)
		if _, ok := inserted[num]; ok {
			require.ErrorIs(t, tree.Insert(num), ErrRBTreeKeyExists)
			continue
		}
		inserted[num] = struct{}{}
		elements = append(elements, num)
		require.NoError(t, tree.Insert(num))
		if violationCheck {
			require.NoError(t, RBTreeValidate(tree))
		}
	}
	require.Equal(t, int64(total), tree.Len())

	sorted := append([]uint64(nil), elements...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i] < sorted[j]
	})
	tree.Foreach(func(idx int64, color RBColor, val uint64) bool {
		require.Equal(t, sorted[idx], val)
		return true
	})

	removeTotal := total / 5
	randv2.Shuffle(len(elements), func(i, j int) {
		elements[i], elements[j] = elements[j], elements[i]
	})
	for _, num := range elements[:removeTotal] {
		require.NoError(t, tree.Remove(num))
		delete(inserted, num)
		if violationCheck {
			require.NoError(t, RBTreeValidate(tree))
		}
	}
	require.Equal(t, int64(total-removeTotal), tree.Len())
	require.NoError(t, RBTreeValidate(tree))

	remains := append([]uint64(nil), elements[removeTotal:]...)
	sort.Slice(remains, func(i, j int) bool {
		return remains[i] < remains[j]
	})
	tree.Foreach(func(idx int64, color RBColor, val uint64) bool {
		require.Equal(t, remains[idx], val)
		return true
	})
}

func TestRbtreeRandomInsertAndRemove(t *testing.T) {
	testcases := []struct {
		name           string
		rmBySucc       bool
		total          int
		violationCheck bool
	}{
		{name: "rm by pred 100000", total: 100000},
		{name: "rm by succ 100000", rmBySucc: true, total: 100000},
		{name: "violation check rm by pred 2000", total: 2000, violationCheck: true},
		{name: "violation check rm by succ 2000", rmBySucc: true, total: 2000, violationCheck: true},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(tt *testing.T) {
			rbtreeRandomInsertAndRemoveRunCore(tt, tc.total, tc.rmBySucc, tc.violationCheck)
		})
	}
}

func BenchmarkRBTree_Random(b *testing.B) {
	b.StopTimer()
	tree := NewRBTree[int](infra.OrderedKeyCompare[int])

	rngArr := make([]int, 0, b.N)
	for i := 0; i < b.N; i++ {
		rngArr = append(rngArr, randv2.Int())
	}

	b.StartTimer()
	for i := 0; i < b.N; i++ {
		_ = tree.Insert(rngArr[i])
	}
}

func BenchmarkRBTree_Serial(b *testing.B) {
	b.StopTimer()
	tree := NewRBTree[int](infra.OrderedKeyCompare[int])

	b.StartTimer()
	for i := 0; i < b.N; i++ {
		_ = tree.Insert(i)
	}
}

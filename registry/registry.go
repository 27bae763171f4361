package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"

	antsv2 "github.com/panjf2000/ants/v2"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/benz9527/xpal/lib/id"
	"github.com/benz9527/xpal/lib/infra"
	"github.com/benz9527/xpal/lib/tree"
	"github.com/benz9527/xpal/observability"
	"github.com/benz9527/xpal/xlog"
)

// Handle denotes a registered resource, like a file descriptor.
type Handle = int32

const InvalidHandle Handle = id.InvalidHandle

type entry[R any] struct {
	handle Handle
	res    R
}

func compareEntry[R any](a, b entry[R]) int {
	return infra.OrderedKeyCompare(a.handle, b.handle)
}

// Registry maps the handles to the live resources. The handles come
// from an id.IntHandleManager, whose in-use check is a lookup in the
// tree indexed by handle. All operations are serialized by the lock.
type Registry[R any] struct {
	lock     sync.RWMutex
	handles  *id.IntHandleManager
	entries  tree.RBTree[entry[R]]
	pool     *tree.NodePool[entry[R]]
	metrics  *registryMetrics
	logger   xlog.XLogger
	meter    metric.Meter
	releaser Releaser[R]
	name     string
	closed   bool

	maxHandle          int32
	poolCap            int
	releaseConcurrency int
}

func NewRegistry[R any](opts ...RegistryOption[R]) (*Registry[R], error) {
	r := &Registry[R]{
		name:               defaultRegistryName,
		maxHandle:          -1,
		releaseConcurrency: defaultReleaseConcurrency,
	}
	for _, o := range opts {
		if o == nil {
			continue
		}
		if err := o(r); err != nil {
			return nil, err
		}
	}

	if r.logger == nil {
		r.logger = defaultLogger()
	}
	r.logger = r.logger.Named("registry")
	if r.meter == nil {
		r.meter = observability.RegistryMeter(r.name)
	}

	treeOpts := []tree.RBTreeOpt[entry[R]]{
		tree.WithRBTreeInfo[entry[R]](r.name),
	}
	if r.poolCap > 0 {
		r.pool = tree.NewNodePool[entry[R]](r.poolCap)
		treeOpts = append(treeOpts, tree.WithRBTreeAllocator[entry[R]](r.pool))
	}
	r.entries = tree.NewRBTree[entry[R]](compareEntry[R], treeOpts...)
	r.handles = id.NewHandleManager[int32](r.maxHandle, func(h Handle) bool {
		_, ok := r.entries.Find(entry[R]{handle: h})
		return ok
	})

	var err error
	if r.metrics, err = newRegistryMetrics(r.meter, r.name, r.Len); err != nil {
		return nil, infra.WrapErrorStackWithMessage(err, "[registry] metrics")
	}
	return r, nil
}

func (r *Registry[R]) Name() string {
	return r.name
}

// Register stores the resource under the next free handle.
func (r *Registry[R]) Register(res R) (Handle, error) {
	ctx := context.Background()
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.closed {
		return InvalidHandle, infra.WrapErrorStack(ErrRegistryClosed)
	}
	h := r.handles.Next()
	if h == InvalidHandle {
		r.metrics.exhaust(ctx)
		r.logger.Warn("handles exhausted", zap.String("registry", r.name), zap.Int64("live", r.entries.Len()))
		return InvalidHandle, infra.WrapErrorStack(ErrRegistryFull)
	}
	if err := r.entries.Insert(entry[R]{handle: h, res: res}); err != nil {
		if errors.Is(err, tree.ErrRBTreeNoMemory) {
			r.metrics.exhaust(ctx)
			r.logger.Warn("node pool exhausted", zap.String("registry", r.name), zap.Int("capacity", r.pool.Cap()))
			return InvalidHandle, infra.WrapErrorStackWithMessage(ErrRegistryFull, err.Error())
		}
		// A free handle is never in the tree.
		return InvalidHandle, infra.WrapErrorStackWithMessage(err, fmt.Sprintf("[registry] handle %d", h))
	}
	r.metrics.issue(ctx)
	r.logger.Debug("registered", zap.String("registry", r.name), zap.Int32("handle", h))
	return h, nil
}

func (r *Registry[R]) Lookup(h Handle) (R, bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	e, ok := r.entries.Find(entry[R]{handle: h})
	return e.res, ok
}

func (r *Registry[R]) Contains(h Handle) bool {
	_, ok := r.Lookup(h)
	return ok
}

// Unregister removes the handle and releases its resource. The handle
// may be issued again once the handles wrapped around.
func (r *Registry[R]) Unregister(h Handle) (R, error) {
	var res R
	r.lock.Lock()
	err := r.entries.RemoveWithCallback(entry[R]{handle: h}, func(node *tree.RBNode[entry[R]]) {
		res = node.Value().res
	})
	r.lock.Unlock()
	if err != nil {
		if errors.Is(err, tree.ErrRBTreeKeyNotFound) {
			return res, infra.WrapErrorStackWithMessage(ErrRegistryNotFound, fmt.Sprintf("handle %d", h))
		}
		return res, infra.WrapErrorStack(err)
	}

	r.metrics.release(context.Background(), 1)
	r.logger.Debug("unregistered", zap.String("registry", r.name), zap.Int32("handle", h))
	if r.releaser != nil {
		if err = r.releaser(h, res); err != nil {
			err = infra.WrapErrorStackWithMessage(err, fmt.Sprintf("[registry] release handle %d", h))
			r.logger.ErrorStack(err, "release failed", zap.String("registry", r.name))
			return res, err
		}
	}
	return res, nil
}

// Range visits the handles not less than from in ascending order until
// fn returns false. fn runs under the read lock, so it must not call the
// mutating methods of the registry.
func (r *Registry[R]) Range(from Handle, fn func(h Handle, res R) bool) {
	if fn == nil {
		return
	}
	r.lock.RLock()
	defer r.lock.RUnlock()
	var it tree.RBIter[entry[R]]
	for e, ok := it.LowerBound(r.entries, entry[R]{handle: from}); ok; e, ok = it.Next() {
		if !fn(e.handle, e.res) {
			return
		}
	}
}

// Handles returns the live handles in ascending order.
func (r *Registry[R]) Handles() []Handle {
	r.lock.RLock()
	defer r.lock.RUnlock()
	entries := make([]entry[R], 0, r.entries.Len())
	var it tree.RBIter[entry[R]]
	for e, ok := it.First(r.entries); ok; e, ok = it.Next() {
		entries = append(entries, e)
	}
	return lo.Map(entries, func(e entry[R], _ int) Handle {
		return e.handle
	})
}

func (r *Registry[R]) Len() int64 {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.entries.Len()
}

// Close rejects further registrations and releases the remaining
// resources concurrently. It returns the combined release errors, or
// the context error if the releases do not finish in time.
// Closing a closed registry is a no-op.
func (r *Registry[R]) Close(ctx context.Context) error {
	r.lock.Lock()
	if r.closed {
		r.lock.Unlock()
		return nil
	}
	r.closed = true
	remaining := make([]entry[R], 0, r.entries.Len())
	r.entries.ClearWithCallback(func(node *tree.RBNode[entry[R]]) {
		remaining = append(remaining, node.Value())
	})
	r.lock.Unlock()

	r.metrics.release(ctx, int64(len(remaining)))
	err := r.metrics.stop()
	r.logger.Info("closing", zap.String("registry", r.name), zap.Int("remaining", len(remaining)))
	if r.releaser == nil || len(remaining) == 0 {
		return err
	}
	return multierr.Append(err, r.releaseAll(ctx, remaining))
}

func (r *Registry[R]) releaseAll(ctx context.Context, remaining []entry[R]) error {
	pool, err := antsv2.NewPool(
		r.releaseConcurrency,
		antsv2.WithLogger(xlog.NewAntsXLogger(r.logger)),
	)
	if err != nil {
		return infra.WrapErrorStackWithMessage(err, "[registry] release pool")
	}
	defer pool.Release()

	var (
		wg      sync.WaitGroup
		errLock sync.Mutex
		errs    error
	)
	appendErr := func(err error) {
		errLock.Lock()
		defer errLock.Unlock()
		errs = multierr.Append(errs, err)
	}
	release := func(e entry[R]) {
		defer wg.Done()
		defer func() {
			if p := recover(); p != nil {
				appendErr(infra.NewErrorStack(fmt.Sprintf("[registry] release handle %d panic: %v", e.handle, p)))
			}
		}()
		if err := r.releaser(e.handle, e.res); err != nil {
			err = infra.WrapErrorStackWithMessage(err, fmt.Sprintf("[registry] release handle %d", e.handle))
			r.logger.ErrorStack(err, "release failed", zap.String("registry", r.name))
			appendErr(err)
		}
	}

	// Submit blocks while all workers are busy, so it runs with the
	// waiting to honor the context.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, e := range remaining {
			if ctx.Err() != nil {
				break
			}
			wg.Add(1)
			if err := pool.Submit(func() { release(e) }); err != nil {
				wg.Done()
				appendErr(infra.WrapErrorStackWithMessage(err, fmt.Sprintf("[registry] submit handle %d", e.handle)))
			}
		}
		wg.Wait()
	}()
	select {
	case <-done:
	case <-ctx.Done():
		appendErr(ctx.Err())
	}

	errLock.Lock()
	defer errLock.Unlock()
	return errs
}

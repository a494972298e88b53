package mempool

import (
	"sync"
)

// A simple sized pool for []int64 and []bool buffers. Integral tables and
// component masks are allocated per raster and per retry, so they are pooled.

var (
	int64Pools sync.Map // key: size class (int), value: *sync.Pool
	boolPools  sync.Map // key: size class (int), value: *sync.Pool
)

// sizeClass rounds n up to a multiple of 1024 to reduce churn.
func sizeClass(n int) int {
	if n <= 1024 {
		return 1024
	}
	const step = 1024
	r := (n + step - 1) / step
	return r * step
}

func pool[T any](pools *sync.Map, cls int) *sync.Pool {
	pAny, _ := pools.LoadOrStore(cls, &sync.Pool{New: func() any { return make([]T, cls) }})
	p, _ := pAny.(*sync.Pool)
	return p
}

func get[T any](pools *sync.Map, n int) []T {
	cls := sizeClass(n)
	p := pool[T](pools, cls)
	if p == nil {
		return make([]T, cls)[:n]
	}
	buf, ok := p.Get().([]T)
	if !ok || cap(buf) < cls {
		buf = make([]T, cls)
	}
	buf = buf[:n]
	var zero T
	for i := range buf {
		buf[i] = zero
	}
	return buf
}

func put[T any](pools *sync.Map, buf []T) {
	if buf == nil {
		return
	}
	cls := sizeClass(cap(buf))
	if cls != cap(buf) {
		// foreign slice, not from a pool bucket
		return
	}
	if p := pool[T](pools, cls); p != nil {
		p.Put(buf[:cap(buf)]) //nolint:staticcheck
	}
}

// GetInt64 retrieves a zeroed []int64 buffer of length n.
// The caller must return it via PutInt64 when done.
func GetInt64(n int) []int64 { return get[int64](&int64Pools, n) }

// PutInt64 returns a buffer to the pool. It is safe to pass a nil slice.
func PutInt64(buf []int64) { put(&int64Pools, buf) }

// GetBool retrieves a zeroed []bool buffer of length n.
// The caller must return it via PutBool when done.
func GetBool(n int) []bool { return get[bool](&boolPools, n) }

// PutBool returns a buffer to the pool. It is safe to pass a nil slice.
func PutBool(buf []bool) { put(&boolPools, buf) }

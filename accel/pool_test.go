package accel

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestPool(t *testing.T, capacity int, opts ...EmulatedOption) (*SessionPool, *EmulatedDriver, *Device) {
	t.Helper()

	drv := NewEmulatedDriver(opts...)
	dev := NewDevice(drv)
	var limit atomic.Int64
	limit.Store(int64(capacity))
	p := NewSessionPool(dev, func() int { return int(limit.Load()) })
	t.Cleanup(func() { _ = p.Close() })

	return p, drv, dev
}

func TestSessionPool_LazyDeviceStart(t *testing.T) {
	p, drv, dev := newTestPool(t, 2)
	require.False(t, dev.Started())

	lease, err := p.Acquire()
	require.NoError(t, err)
	require.True(t, dev.Started())
	require.NotNil(t, lease.Session())
	lease.Release()

	require.Equal(t, uint64(1), drv.Stats().Starts)
}

func TestSessionPool_ReusesMostRecentlyReleased(t *testing.T) {
	p, _, _ := newTestPool(t, 4)

	a, err := p.Acquire()
	require.NoError(t, err)
	b, err := p.Acquire()
	require.NoError(t, err)

	sa, sb := a.Session(), b.Session()
	a.Release()
	b.Release()

	next, err := p.Acquire()
	require.NoError(t, err)
	require.Same(t, sb, next.Session(), "idle sessions are reused LIFO")

	after, err := p.Acquire()
	require.NoError(t, err)
	require.Same(t, sa, after.Session())

	next.Release()
	after.Release()

	stats := p.Stats()
	require.Equal(t, uint64(2), stats.Created)
	require.Equal(t, uint64(2), stats.Reused)
	require.Equal(t, 2, stats.Idle)
	require.Zero(t, stats.InUse)
}

func TestSessionPool_ReleaseAboveCapacityDestroys(t *testing.T) {
	p, drv, _ := newTestPool(t, 1)

	a, err := p.Acquire()
	require.NoError(t, err)
	b, err := p.Acquire()
	require.NoError(t, err)

	a.Release()
	b.Release()

	stats := p.Stats()
	require.Equal(t, 1, stats.Idle)
	require.Equal(t, uint64(1), stats.Destroyed)
	require.Equal(t, 1, drv.Sessions())
}

func TestSessionPool_ZeroCapacityKeepsNothing(t *testing.T) {
	drv := NewEmulatedDriver()
	p := NewSessionPool(NewDevice(drv), nil)
	defer p.Close()

	for n := 0; n < 3; n++ {
		lease, err := p.Acquire()
		require.NoError(t, err)
		lease.Release()
	}

	require.Zero(t, p.Stats().Idle)
	require.Equal(t, uint64(3), p.Stats().Created)
	require.Zero(t, drv.Sessions())
}

func TestSessionPool_CapacityReadOnRelease(t *testing.T) {
	drv := NewEmulatedDriver()
	var limit atomic.Int64
	limit.Store(3)
	p := NewSessionPool(NewDevice(drv), func() int { return int(limit.Load()) })
	defer p.Close()

	leases := make([]*Lease, 3)
	for i := range leases {
		var err error
		leases[i], err = p.Acquire()
		require.NoError(t, err)
	}

	leases[0].Release()
	require.Equal(t, 1, p.Stats().Idle)

	limit.Store(1)
	leases[1].Release()
	leases[2].Release()
	require.Equal(t, 1, p.Stats().Idle, "lowered capacity applies to later releases")

	limit.Store(4)
	for n := 0; n < 3; n++ {
		lease, err := p.Acquire()
		require.NoError(t, err)
		defer lease.Release()
	}
}

func TestSessionPool_Trim(t *testing.T) {
	drv := NewEmulatedDriver()
	var limit atomic.Int64
	limit.Store(4)
	p := NewSessionPool(NewDevice(drv), func() int { return int(limit.Load()) })
	defer p.Close()

	leases := make([]*Lease, 4)
	for i := range leases {
		var err error
		leases[i], err = p.Acquire()
		require.NoError(t, err)
	}
	for _, l := range leases {
		l.Release()
	}
	require.Equal(t, 4, p.Stats().Idle)

	limit.Store(1)
	require.Equal(t, 3, p.Trim())
	require.Equal(t, 1, p.Stats().Idle)
	require.Equal(t, 1, drv.Sessions())
}

func TestSessionPool_LeaseReleaseIdempotent(t *testing.T) {
	p, _, _ := newTestPool(t, 2)

	lease, err := p.Acquire()
	require.NoError(t, err)
	lease.Release()
	lease.Release()
	require.Nil(t, lease.Session())

	var nilLease *Lease
	nilLease.Release()
	require.Nil(t, nilLease.Session())

	stats := p.Stats()
	require.Equal(t, 1, stats.Idle)
	require.Zero(t, stats.InUse)
}

func TestSessionPool_AcquireFailures(t *testing.T) {
	tests := []struct {
		name   string
		driver Driver
	}{
		{"unavailable driver", UnavailableDriver{}},
		{"absent device", NewEmulatedDriver(WithDeviceAbsent())},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewSessionPool(NewDevice(tt.driver), func() int { return 2 })
			defer p.Close()

			lease, err := p.Acquire()
			require.ErrorIs(t, err, ErrNoSession)
			require.ErrorIs(t, err, ErrDeviceUnavailable)
			require.Nil(t, lease)
			require.Zero(t, p.Stats().InUse)
		})
	}
}

func TestSessionPool_ResourceExhaustion(t *testing.T) {
	p, _, _ := newTestPool(t, 1, WithMaxSessions(1))

	held, err := p.Acquire()
	require.NoError(t, err)

	_, err = p.Acquire()
	require.ErrorIs(t, err, ErrNoSession)
	require.ErrorIs(t, err, ErrNoResources)

	held.Release()
	again, err := p.Acquire()
	require.NoError(t, err)
	again.Release()
}

func TestSessionPool_CloseStopsDevice(t *testing.T) {
	p, drv, dev := newTestPool(t, 2)

	lease, err := p.Acquire()
	require.NoError(t, err)
	lease.Release()

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	require.False(t, dev.Started())
	require.Zero(t, drv.Sessions())

	_, err = p.Acquire()
	require.ErrorIs(t, err, ErrPoolClosed)
}

func TestSessionPool_CloseWithOutstandingLease(t *testing.T) {
	p, drv, dev := newTestPool(t, 2)

	lease, err := p.Acquire()
	require.NoError(t, err)

	require.NoError(t, p.Close())
	require.True(t, dev.Started(), "device stays up while a lease is outstanding")

	_, err = lease.Session().EncodeFrame(nil, []byte("still usable"), 3)
	require.NoError(t, err)

	lease.Release()
	require.False(t, dev.Started(), "last release stops the device")
	require.Zero(t, drv.Sessions())
	require.Zero(t, p.Stats().Idle)
}

func TestSessionPool_NoSharedSessions(t *testing.T) {
	const (
		capacity   = 3
		goroutines = 16
		iterations = 50
	)
	p, drv, _ := newTestPool(t, capacity)

	src := []byte("concurrent lease payload")
	var wg sync.WaitGroup
	errs := make(chan error, goroutines)

	for n := 0; n < goroutines; n++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := 0; n < iterations; n++ {
				lease, err := p.Acquire()
				if err != nil {
					errs <- err
					return
				}
				// The emulated driver rejects concurrent use of one session.
				if _, err := lease.Session().EncodeFrame(nil, src, 1); err != nil {
					lease.Release()
					errs <- err
					return
				}
				lease.Release()
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	stats := p.Stats()
	require.LessOrEqual(t, stats.Idle, capacity)
	require.Zero(t, stats.InUse)
	require.Equal(t, uint64(stats.Idle), stats.Created-stats.Destroyed)
	require.Equal(t, uint64(goroutines*iterations), stats.Created+stats.Reused)
	require.Equal(t, stats.Idle, drv.Sessions())
}

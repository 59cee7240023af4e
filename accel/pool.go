package accel

import (
	"errors"
	"fmt"
	"sync"

	"github.com/arloliu/qatzstd/internal/options"
	"go.uber.org/zap"
)

var (
	// ErrNoSession is returned when no session can be leased. Callers treat it
	// as a signal to compress in software.
	ErrNoSession = errors.New("no accelerator session available")
	// ErrPoolClosed is returned by Acquire after Close.
	ErrPoolClosed = errors.New("session pool closed")
)

// PoolOption configures a SessionPool.
type PoolOption = options.Option[*SessionPool]

// WithLogger sets the logger for session lifecycle events.
func WithLogger(logger *zap.Logger) PoolOption {
	return options.NoError(func(p *SessionPool) {
		if logger != nil {
			p.logger = logger
		}
	})
}

// SessionPool caches idle accelerator sessions for reuse.
//
// The number of idle sessions never exceeds the capacity reported by the
// capacity function, which is read again on every release so that the limit
// can change at runtime. The number of sessions in use is not bounded.
//
// The pool owns the device lifecycle: the device is started on the first
// session creation and stopped when the pool is closed and no lease is
// outstanding.
type SessionPool struct {
	mu       sync.Mutex
	device   *Device
	capacity func() int
	idle     []*Session
	inUse    int
	closed   bool
	logger   *zap.Logger

	created   uint64
	destroyed uint64
	reused    uint64
}

// NewSessionPool creates an empty pool of sessions on dev.
// A nil capacity function means the pool keeps no idle sessions.
func NewSessionPool(dev *Device, capacity func() int, opts ...PoolOption) *SessionPool {
	if capacity == nil {
		capacity = func() int { return 0 }
	}

	p := &SessionPool{
		device:   dev,
		capacity: capacity,
		logger:   zap.NewNop(),
	}
	_ = options.Apply(p, opts...)

	return p
}

// Acquire leases a session, reusing the most recently released idle one or
// creating a new one. The returned lease must be released.
func (p *SessionPool) Acquire() (*Lease, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	if n := len(p.idle); n > 0 {
		s := p.idle[n-1]
		p.idle[n-1] = nil
		p.idle = p.idle[:n-1]
		p.inUse++
		p.reused++
		p.mu.Unlock()

		return &Lease{pool: p, session: s}, nil
	}
	p.inUse++
	p.mu.Unlock()

	s, err := p.create()
	if err != nil {
		p.mu.Lock()
		p.inUse--
		p.stopIfDrainedLocked()
		p.mu.Unlock()
		p.logger.Debug("accelerator session unavailable", zap.Error(err))

		return nil, fmt.Errorf("%w: %w", ErrNoSession, err)
	}

	p.mu.Lock()
	p.created++
	p.mu.Unlock()

	return &Lease{pool: p, session: s}, nil
}

// create runs outside the pool lock since session setup can be slow.
func (p *SessionPool) create() (*Session, error) {
	if err := p.device.Start(); err != nil {
		return nil, err
	}

	s, err := p.device.NewSession()
	if err != nil {
		return nil, err
	}
	p.logger.Debug("accelerator session created", zap.Uint64("session", s.ID()))

	return s, nil
}

func (p *SessionPool) release(s *Session) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.inUse--
	if !p.closed && len(p.idle) < p.capacity() {
		p.idle = append(p.idle, s)
		return
	}

	p.destroyLocked(s)
	p.stopIfDrainedLocked()
}

// Close destroys idle sessions and refuses further leases. The device is
// stopped now if no lease is outstanding, otherwise by the last release.
func (p *SessionPool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	for i, s := range p.idle {
		p.destroyLocked(s)
		p.idle[i] = nil
	}
	p.idle = nil

	if p.inUse == 0 {
		return p.device.Stop()
	}
	p.logger.Debug("session pool closed with outstanding leases", zap.Int("in_use", p.inUse))

	return nil
}

// Trim destroys idle sessions above the current capacity. It is useful after
// lowering the capacity while the pool is quiet.
func (p *SessionPool) Trim() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	limit := max(p.capacity(), 0)
	n := 0
	for len(p.idle) > limit {
		last := len(p.idle) - 1
		p.destroyLocked(p.idle[last])
		p.idle[last] = nil
		p.idle = p.idle[:last]
		n++
	}

	return n
}

func (p *SessionPool) destroyLocked(s *Session) {
	p.destroyed++
	if err := s.destroy(); err != nil {
		p.logger.Warn("failed to destroy accelerator session", zap.Uint64("session", s.ID()), zap.Error(err))
		return
	}
	p.logger.Debug("accelerator session destroyed", zap.Uint64("session", s.ID()))
}

func (p *SessionPool) stopIfDrainedLocked() {
	if !p.closed || p.inUse > 0 {
		return
	}
	if err := p.device.Stop(); err != nil {
		p.logger.Warn("failed to stop accelerator", zap.Error(err))
	}
}

// PoolStats is a snapshot of pool activity.
type PoolStats struct {
	Created   uint64
	Destroyed uint64
	Reused    uint64
	Idle      int
	InUse     int
}

// Stats returns a snapshot of the pool counters.
func (p *SessionPool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	return PoolStats{
		Created:   p.created,
		Destroyed: p.destroyed,
		Reused:    p.reused,
		Idle:      len(p.idle),
		InUse:     p.inUse,
	}
}

// Lease is exclusive use of one session until Release.
type Lease struct {
	mu      sync.Mutex
	pool    *SessionPool
	session *Session
}

// Session returns the leased session, or nil after Release.
func (l *Lease) Session() *Session {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.session
}

// Release returns the session to the pool. Only the first call has an effect,
// and it is safe to call on a nil lease.
func (l *Lease) Release() {
	if l == nil {
		return
	}

	l.mu.Lock()
	s := l.session
	l.session = nil
	l.mu.Unlock()

	if s != nil {
		l.pool.release(s)
	}
}

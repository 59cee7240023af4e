package accel

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/arloliu/qatzstd/internal/options"
	"github.com/klauspost/compress/zstd"
)

// EmulatedOption configures an EmulatedDriver.
type EmulatedOption = options.Option[*EmulatedDriver]

// WithMaxSessions limits how many sessions may exist at once. Zero means unlimited.
func WithMaxSessions(n int) EmulatedOption {
	return options.New(func(d *EmulatedDriver) error {
		if n < 0 {
			return fmt.Errorf("max sessions must be >= 0, got %d", n)
		}
		d.maxSessions = n

		return nil
	})
}

// WithDeviceAbsent makes Start fail as if no accelerator were installed.
func WithDeviceAbsent() EmulatedOption {
	return options.NoError(func(d *EmulatedDriver) {
		d.absent = true
	})
}

// WithFailEvery makes every nth EncodeFrame call fail with ErrHardwareFault.
// Zero disables fault injection.
func WithFailEvery(n int) EmulatedOption {
	return options.New(func(d *EmulatedDriver) error {
		if n < 0 {
			return fmt.Errorf("fail interval must be >= 0, got %d", n)
		}
		d.failEvery = uint64(n)

		return nil
	})
}

// EmulatedDriver is a software stand-in for a compression accelerator.
//
// Each session owns private zstd encoders, so creating a session costs what a
// hardware context setup would and reusing one is cheap. The driver rejects
// concurrent use of one session with ErrSessionBusy, which makes it suitable
// for checking that sessions are never shared.
type EmulatedDriver struct {
	mu          sync.RWMutex
	started     bool
	absent      bool
	maxSessions int
	failEvery   uint64
	nextHandle  Handle
	sessions    map[Handle]*emulatedSession

	calls   atomic.Uint64
	created atomic.Uint64
	freed   atomic.Uint64
	starts  atomic.Uint64
	stops   atomic.Uint64
}

type emulatedSession struct {
	busy     atomic.Bool
	encoders map[zstd.EncoderLevel]*zstd.Encoder
}

var _ Driver = (*EmulatedDriver)(nil)

// NewEmulatedDriver creates a stopped emulated accelerator.
// It panics on invalid options, which are programming errors.
func NewEmulatedDriver(opts ...EmulatedOption) *EmulatedDriver {
	d := &EmulatedDriver{sessions: make(map[Handle]*emulatedSession)}
	if err := options.Apply(d, opts...); err != nil {
		panic(fmt.Sprintf("accel: invalid emulated driver option: %v", err))
	}

	return d
}

// Start implements Driver.
func (d *EmulatedDriver) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.absent {
		return fmt.Errorf("%w: emulated device absent", ErrDeviceUnavailable)
	}
	d.started = true
	d.starts.Add(1)

	return nil
}

// Stop implements Driver. Sessions still open are released.
func (d *EmulatedDriver) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for h, s := range d.sessions {
		s.close()
		delete(d.sessions, h)
		d.freed.Add(1)
	}
	d.started = false
	d.stops.Add(1)

	return nil
}

// NewSession implements Driver.
func (d *EmulatedDriver) NewSession() (Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.started {
		return 0, ErrDeviceStopped
	}
	if d.maxSessions > 0 && len(d.sessions) >= d.maxSessions {
		return 0, fmt.Errorf("%w: %d sessions open", ErrNoResources, len(d.sessions))
	}

	s := &emulatedSession{encoders: make(map[zstd.EncoderLevel]*zstd.Encoder, 1)}
	// Set up the default-level context eagerly, like a hardware session would.
	if _, err := s.encoder(zstd.SpeedDefault); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrNoResources, err)
	}

	d.nextHandle++
	d.sessions[d.nextHandle] = s
	d.created.Add(1)

	return d.nextHandle, nil
}

// FreeSession implements Driver.
func (d *EmulatedDriver) FreeSession(h Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	s, ok := d.sessions[h]
	if !ok {
		return fmt.Errorf("%w: handle %d", ErrUnknownSession, h)
	}
	s.close()
	delete(d.sessions, h)
	d.freed.Add(1)

	return nil
}

// EncodeFrame implements Driver.
func (d *EmulatedDriver) EncodeFrame(h Handle, dst, src []byte, level int) ([]byte, error) {
	d.mu.RLock()
	s, ok := d.sessions[h]
	started := d.started
	d.mu.RUnlock()

	if !started {
		return dst, ErrDeviceStopped
	}
	if !ok {
		return dst, fmt.Errorf("%w: handle %d", ErrUnknownSession, h)
	}
	if !s.busy.CompareAndSwap(false, true) {
		return dst, fmt.Errorf("%w: handle %d", ErrSessionBusy, h)
	}
	defer s.busy.Store(false)

	call := d.calls.Add(1)
	if d.failEvery > 0 && call%d.failEvery == 0 {
		return dst, fmt.Errorf("%w: injected on call %d", ErrHardwareFault, call)
	}

	enc, err := s.encoder(zstd.EncoderLevelFromZstd(level))
	if err != nil {
		return dst, fmt.Errorf("%w: %w", ErrHardwareFault, err)
	}

	return enc.EncodeAll(src, dst), nil
}

// Sessions returns the number of open sessions.
func (d *EmulatedDriver) Sessions() int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return len(d.sessions)
}

// EmulatedStats reports driver activity counters.
type EmulatedStats struct {
	Starts          uint64
	Stops           uint64
	SessionsCreated uint64
	SessionsFreed   uint64
	Frames          uint64
}

// Stats returns a snapshot of the driver counters.
func (d *EmulatedDriver) Stats() EmulatedStats {
	return EmulatedStats{
		Starts:          d.starts.Load(),
		Stops:           d.stops.Load(),
		SessionsCreated: d.created.Load(),
		SessionsFreed:   d.freed.Load(),
		Frames:          d.calls.Load(),
	}
}

// encoder returns the session's encoder for speed, creating it on first use.
// Callers hold the session's busy flag or the driver lock during setup.
func (s *emulatedSession) encoder(speed zstd.EncoderLevel) (*zstd.Encoder, error) {
	if enc, ok := s.encoders[speed]; ok {
		return enc, nil
	}

	enc, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(speed),
		zstd.WithEncoderConcurrency(1),
		zstd.WithZeroFrames(true),
	)
	if err != nil {
		return nil, err
	}
	s.encoders[speed] = enc

	return enc, nil
}

func (s *emulatedSession) close() {
	for speed, enc := range s.encoders {
		_ = enc.Close()
		delete(s.encoders, speed)
	}
}

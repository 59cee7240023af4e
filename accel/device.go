package accel

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/arloliu/qatzstd/compress"
	"github.com/arloliu/qatzstd/internal/options"
	"go.uber.org/zap"
)

// DeviceOption configures a Device.
type DeviceOption = options.Option[*Device]

// WithDeviceLogger sets the logger used for device lifecycle events.
func WithDeviceLogger(logger *zap.Logger) DeviceOption {
	return options.NoError(func(d *Device) {
		if logger != nil {
			d.logger = logger
		}
	})
}

// Device tracks whether the accelerator behind a Driver is online.
//
// Start is idempotent and Stop is a no-op on a stopped device, so the owner
// can call them without tracking state itself.
type Device struct {
	mu      sync.Mutex
	driver  Driver
	started bool
	logger  *zap.Logger
	nextID  atomic.Uint64
}

// NewDevice wraps driver in a stopped Device.
func NewDevice(driver Driver, opts ...DeviceOption) *Device {
	if driver == nil {
		driver = UnavailableDriver{}
	}

	d := &Device{driver: driver, logger: zap.NewNop()}
	_ = options.Apply(d, opts...)

	return d
}

// Start brings the accelerator online. Calling it on a started device does nothing.
// Failures wrap ErrDeviceUnavailable and leave the device stopped.
func (d *Device) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.started {
		return nil
	}

	if err := d.driver.Start(); err != nil {
		d.logger.Warn("accelerator start failed", zap.Error(err))
		return fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}
	d.started = true
	d.logger.Info("accelerator started")

	return nil
}

// Stop shuts the accelerator down. Calling it on a stopped device does nothing.
// Callers must ensure no session is in use.
func (d *Device) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.started {
		return nil
	}
	d.started = false

	if err := d.driver.Stop(); err != nil {
		d.logger.Warn("accelerator stop failed", zap.Error(err))
		return fmt.Errorf("stop accelerator: %w", err)
	}
	d.logger.Info("accelerator stopped")

	return nil
}

// Started reports whether the device is online.
func (d *Device) Started() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.started
}

// NewSession creates a session on a started device.
func (d *Device) NewSession() (*Session, error) {
	d.mu.Lock()
	started := d.started
	d.mu.Unlock()

	if !started {
		return nil, ErrDeviceStopped
	}

	h, err := d.driver.NewSession()
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	return &Session{id: d.nextID.Add(1), handle: h, driver: d.driver}, nil
}

// Session is one accelerator execution context.
//
// A session is owned by exactly one of the pool (idle) or a Lease (in use)
// and must never be used by two goroutines at once.
type Session struct {
	id     uint64
	handle Handle
	driver Driver
}

var _ compress.MatchFinder = (*Session)(nil)

// ID returns a process-unique identifier, useful for instrumentation.
func (s *Session) ID() uint64 {
	return s.id
}

// Handle returns the driver-native token.
func (s *Session) Handle() Handle {
	return s.handle
}

// EncodeFrame implements compress.MatchFinder by running the accelerator on src.
func (s *Session) EncodeFrame(dst, src []byte, level int) ([]byte, error) {
	return s.driver.EncodeFrame(s.handle, dst, src, level)
}

func (s *Session) destroy() error {
	return s.driver.FreeSession(s.handle)
}

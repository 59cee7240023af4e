package accel

import (
	"errors"
	"fmt"
)

// Handle is the driver-native token identifying one session's state.
type Handle uint64

var (
	// ErrDeviceUnavailable is returned when the accelerator cannot be brought online.
	ErrDeviceUnavailable = errors.New("accelerator device unavailable")
	// ErrDeviceStopped is returned when a session operation needs a started device.
	ErrDeviceStopped = errors.New("accelerator device not started")
	// ErrNoResources is returned when the driver cannot create another session.
	ErrNoResources = errors.New("accelerator out of session resources")
	// ErrUnknownSession is returned for a handle the driver does not know.
	ErrUnknownSession = errors.New("unknown accelerator session")
	// ErrSessionBusy is returned when a session is used by two callers at once.
	ErrSessionBusy = errors.New("accelerator session already in use")
	// ErrHardwareFault is returned when the accelerator fails to process a chunk.
	ErrHardwareFault = errors.New("accelerator hardware fault")
)

// Driver is the accelerator driver boundary.
//
// Start and Stop bracket every session operation. NewSession and FreeSession
// create and destroy opaque per-session state. EncodeFrame runs the
// accelerator's match finder for one chunk and appends a complete zstd frame
// holding src to dst.
//
// Implementations must be safe for concurrent use across different handles.
type Driver interface {
	Start() error
	Stop() error
	NewSession() (Handle, error)
	FreeSession(h Handle) error
	EncodeFrame(h Handle, dst, src []byte, level int) ([]byte, error)
}

// UnavailableDriver is the driver used when no accelerator is present.
// It never starts, so every compression runs in software.
type UnavailableDriver struct {
	// Reason is reported in the start error.
	Reason string
}

var _ Driver = UnavailableDriver{}

// Start always fails with ErrDeviceUnavailable.
func (d UnavailableDriver) Start() error {
	reason := d.Reason
	if reason == "" {
		reason = "no accelerator driver configured"
	}

	return fmt.Errorf("%w: %s", ErrDeviceUnavailable, reason)
}

// Stop is a no-op.
func (UnavailableDriver) Stop() error {
	return nil
}

// NewSession always fails with ErrDeviceStopped.
func (UnavailableDriver) NewSession() (Handle, error) {
	return 0, ErrDeviceStopped
}

// FreeSession always fails with ErrUnknownSession.
func (UnavailableDriver) FreeSession(Handle) error {
	return ErrUnknownSession
}

// EncodeFrame always fails with ErrDeviceStopped.
func (UnavailableDriver) EncodeFrame(_ Handle, dst, _ []byte, _ int) ([]byte, error) {
	return dst, ErrDeviceStopped
}

// Package accel manages hardware compression accelerator sessions.
//
// The package has four parts:
//
//   - Driver: the accelerator driver boundary. It starts and stops the device,
//     creates and frees per-session state, and encodes chunks with a session.
//   - Device: the process-wide started/stopped state around a Driver.
//   - Session: one accelerator execution context. Sessions are expensive to
//     create and cheap to reuse, and they implement compress.MatchFinder so a
//     compression context can hand chunks to the hardware.
//   - SessionPool and Lease: a bounded LIFO cache of idle sessions. Acquire
//     returns a Lease that owns its session exclusively until Release.
//
// # Lifecycle
//
// The device is started lazily by the pool when the first session has to be
// created, and stopped by SessionPool.Close once no lease is outstanding. If
// leases are still out when Close runs, the last Release stops the device.
//
//	dev := accel.NewDevice(accel.NewEmulatedDriver())
//	sessions := accel.NewSessionPool(dev, func() int { return 8 })
//	defer sessions.Close()
//
//	lease, err := sessions.Acquire()
//	if err != nil {
//	    // no accelerator session: compress in software
//	}
//	defer lease.Release()
//
// # Errors
//
// Acquire failures are never fatal to a compression call. Every error returned
// by Acquire wraps ErrNoSession and means "use the software path".
package accel

package as5600

import (
	"errors"
	"fmt"

	"github.com/mtraver/angle-sensor/as5600/configuration"
	"github.com/mtraver/angle-sensor/as5600/register"
	"github.com/mtraver/angle-sensor/as5600/status"
)

// Persistence policy errors. These are expected outcomes that the caller can
// act on (present a magnet, give up on burning), not failures of the driver.
var (
	// ErrConfigPersistenceExhausted is returned by PersistAngleAndConfig when
	// ZMCO is not zero.
	ErrConfigPersistenceExhausted = errors.New("as5600: angle and configuration settings can no longer be persisted")

	// ErrMaxPositionPersists is returned by PersistPosition once ZMCO has
	// reached 3.
	ErrMaxPositionPersists = errors.New("as5600: maximum number of position persists reached")

	// ErrMagnetRequired is returned by PersistPosition when the magnet is not
	// detected.
	ErrMagnetRequired = errors.New("as5600: magnet must be detected to persist position")
)

// ErrReleased is returned by every operation after Release.
var ErrReleased = errors.New("as5600: device released")

// BusError wraps a failure reported by the bus transport.
type BusError struct {
	Op       string
	Register register.Register
	Err      error
}

func (e *BusError) Error() string {
	return fmt.Sprintf("as5600: %s %v: %v", e.Op, e.Register, e.Err)
}

func (e *BusError) Unwrap() error { return e.Err }

// IsBus reports whether err is a transport failure.
func IsBus(err error) bool {
	var be *BusError
	return errors.As(err, &be)
}

// IsDecode reports whether err came from decoding a register value.
func IsDecode(err error) bool {
	var (
		ue  *register.UnknownError
		ibp *status.InvalidBitPatternError
		ios *configuration.InvalidOutputStageError
	)
	return errors.As(err, &ue) || errors.As(err, &ibp) || errors.As(err, &ios)
}

// IsPersistence reports whether err is one of the burn policy errors.
func IsPersistence(err error) bool {
	return errors.Is(err, ErrConfigPersistenceExhausted) ||
		errors.Is(err, ErrMaxPositionPersists) ||
		errors.Is(err, ErrMagnetRequired)
}

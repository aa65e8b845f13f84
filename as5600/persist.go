package as5600

import (
	"fmt"

	"github.com/mtraver/angle-sensor/as5600/register"
	"github.com/mtraver/angle-sensor/as5600/status"
)

// PersistAngleAndConfig burns MANG and CONF into the OTP memory. This can be
// done once, and only while ZMCO is zero, i.e. before any position burn.
//
// ZMCO is read afresh on every call. The call blocks for the settle time after
// the burn command has been sent.
func (d *Dev) PersistAngleAndConfig() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	zmco, err := d.zmco()
	if err != nil {
		return err
	}
	if zmco != 0 {
		return fmt.Errorf("%w (ZMCO=%d)", ErrConfigPersistenceExhausted, zmco)
	}
	return d.burn(burnSetting)
}

// PersistPosition burns ZPOS and MPOS into the OTP memory. The device allows
// three position burns, and a magnet must be detected.
//
// ZMCO and STATUS are read afresh on every call, so a call that failed with
// ErrMagnetRequired may simply be retried once the magnet is in place.
func (d *Dev) PersistPosition() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	zmco, err := d.zmco()
	if err != nil {
		return err
	}
	if zmco >= maxPositionBurns {
		return fmt.Errorf("%w (ZMCO=%d)", ErrMaxPositionPersists, zmco)
	}

	st, err := d.magnetStatus()
	if err != nil {
		return err
	}
	if st != status.MagnetDetected {
		return fmt.Errorf("%w (status: %v)", ErrMagnetRequired, st)
	}
	return d.burn(burnAngle)
}

// burn sends cmd to BURN and waits out the settle time. The wait happens even
// if the bus reports an error because the command may still have reached the
// device.
func (d *Dev) burn(cmd byte) error {
	err := d.write(register.Burn, uint16(cmd))
	if err == ErrReleased {
		return err
	}
	d.delay.Sleep(d.settle)
	return err
}

package serial

import (
	"os"

	"golang.org/x/sys/unix"
)

// clearDTR drops the DTR modem line on the device. tarm/serial does not
// expose modem control, so the line is cleared with a TIOCMBIC ioctl on a
// separate descriptor; the setting sticks to the underlying tty.
func clearDTR(device string) error {
	f, err := os.OpenFile(device, os.O_RDWR|unix.O_NOCTTY, 0)
	if err != nil {
		return err
	}
	defer f.Close()

	bits := unix.TIOCM_DTR
	return unix.IoctlSetPointerInt(int(f.Fd()), unix.TIOCMBIC, bits)
}

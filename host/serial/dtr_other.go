//go:build !linux

package serial

// clearDTR is a no-op where modem-control ioctls are unavailable.
func clearDTR(device string) error {
	return nil
}

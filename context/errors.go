package context

import "github.com/pkg/errors"

func errTooLarge(deviceName string, size int64) error {
	return errors.Errorf("buffer size %d exceeds device %q max allocation size", size, deviceName)
}

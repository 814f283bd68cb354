//go:build !linux

package source

import (
	"fmt"

	"golang.org/x/xerrors"
)

// Device is only available on linux, where the Quantis driver lives.
type Device struct{}

func DevicePath(number int) string {
	return fmt.Sprintf("/dev/qrandom%d", number)
}

func OpenDevice(number int) (*Device, error) {
	return OpenDevicePath(DevicePath(number))
}

func OpenDevicePath(path string) (*Device, error) {
	return nil, xerrors.Errorf("open %s: quantis devices are only supported on linux", path)
}

func (d *Device) Read(buf []byte) (int, error) {
	return 0, xerrors.New("quantis devices are only supported on linux")
}

func (d *Device) Close() error { return nil }

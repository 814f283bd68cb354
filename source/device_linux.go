//go:build linux

package source

import (
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	u "github.com/moratsam/quantis-extractor/util"
)

// Device reads from a Quantis character device (/dev/qrandomN).
type Device struct {
	path	string
	fd		int
	retries	uint64
}

func DevicePath(number int) string {
	return fmt.Sprintf("/dev/qrandom%d", number)
}

// OpenDevice opens the Quantis device with the given number.
func OpenDevice(number int) (*Device, error) {
	return OpenDevicePath(DevicePath(number))
}

// OpenDevicePath opens any character device that behaves like a Quantis.
func OpenDevicePath(path string) (*Device, error) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, u.WrapErr("open "+path, err)
	}
	log.WithField("device", path).Debug("opened raw source")
	return &Device{path: path, fd: fd, retries: 5}, nil
}

// Read fills buf. Interrupted or would-block reads are retried with backoff,
// short reads are continued until buf is full or the device stops delivering.
func (d *Device) Read(buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		var count int
		op := func() error {
			var err error
			count, err = unix.Read(d.fd, buf[total:])
			if err == unix.EINTR || err == unix.EAGAIN {
				log.WithField("device", d.path).WithError(err).Trace("retrying raw read")
				return err
			}
			if err != nil {
				return backoff.Permanent(err)
			}
			return nil
		}
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = time.Millisecond
		if err := backoff.Retry(op, backoff.WithMaxRetries(b, d.retries)); err != nil {
			return total, u.WrapErr("read "+d.path, err)
		}
		if count <= 0 {
			break
		}
		total += count
	}
	return total, nil
}

func (d *Device) Close() error {
	return unix.Close(d.fd)
}

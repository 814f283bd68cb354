// Package opencl runs the GF(2) extraction kernel on an OpenCL device.
package opencl

import (
	"fmt"
	"unsafe"

	"github.com/jgillich/go-opencl/cl"
	log "github.com/sirupsen/logrus"
	"golang.org/x/xerrors"

	"github.com/moratsam/quantis-extractor/matrix"
	u "github.com/moratsam/quantis-extractor/util"
)

// firstDevice picks the first device of the first platform and creates a context for it.
func firstDevice() (*cl.Device, *cl.Context, error) {
	// Get platforms.
	platforms, err := cl.GetPlatforms()
	if err != nil {
		return nil, nil, u.WrapErr("get platforms", err)
	}
	if len(platforms) == 0 {
		return nil, nil, xerrors.New("GetPlatforms returned 0 platforms")
	}
	platform := platforms[0]
	log.WithFields(log.Fields{
		"platform":	platform.Name(),
		"profile":	platform.Profile(),
		"version":	platform.Version(),
	}).Debug("using OpenCL platform")

	// Get devices.
	devices, err := platform.GetDevices(cl.DeviceTypeAll)
	if err != nil {
		return nil, nil, u.WrapErr("get devices", err)
	}
	if len(devices) == 0 {
		return nil, nil, xerrors.New("GetDevices returned 0 devices")
	}
	device := devices[0]
	log.WithFields(log.Fields{
		"name":					device.Name(),
		"type":					device.Type().String(),
		"vendor":				device.Vendor(),
		"openCL C version":	device.OpenCLCVersion(),
		"little endian":		device.EndianLittle(),
		"max compute units":	device.MaxComputeUnits(),
		"max mem alloc size":	device.MaxMemAllocSize(),
	}).Debug("using OpenCL device")

	// Create device context.
	context, err := cl.CreateContext([]*cl.Device{device})
	if err != nil {
		return nil, nil, u.WrapErr("create context", err)
	}
	return device, context, nil
}

// createKernel builds the extraction kernel for the dimensions of mat.
func createKernel(context *cl.Context, mat *matrix.Matrix) (*cl.Kernel, error) {
	program, err := context.CreateProgramWithSource([]string{util_source + kernel_extract_source})
	if err != nil {
		return nil, u.WrapErr("create program", err)
	}

	options := fmt.Sprintf("-DWORDS_IN=%d -DWORDS_OUT=%d", mat.WordsIn(), mat.WordsOut())
	if err := program.BuildProgram(nil, options); err != nil {
		return nil, u.WrapErr("build program", err)
	}

	kernel, err := program.CreateKernel(kernel_name)
	if err != nil {
		return nil, u.WrapErr("create kernel", err)
	}
	return kernel, nil
}

// enqueueArr copies arr into a new read-only device buffer.
func enqueueArr(arr []byte, context *cl.Context, queue *cl.CommandQueue) (*cl.MemObject, error) {
	ptr := unsafe.Pointer(&arr[0])
	buffer, err := context.CreateEmptyBuffer(cl.MemReadOnly, len(arr))
	if err != nil {
		return nil, u.WrapErr("create buffer", err)
	}
	if _, err := queue.EnqueueWriteBuffer(buffer, true, 0, len(arr), ptr, nil); err != nil {
		buffer.Release()
		return nil, u.WrapErr("enqueue buffer", err)
	}
	return buffer, nil
}

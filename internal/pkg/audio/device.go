package audio

import (
	"strings"

	"github.com/gen2brain/malgo"
	"github.com/pkg/errors"
)

// SampleRate is the capture rate in Hz
const SampleRate = 16000

// Device wraps a capture device producing raw S16LE mono PCM packets
type Device interface {
	Capture(dataC chan []byte) error
	Start() error
	Stop() error
	Dealloc()
}

//ErrPermissionDenied indicates the OS refused microphone access
var ErrPermissionDenied = errors.New("Microphone access denied")

type malgoDevice struct {
	mgCtx    *malgo.AllocatedContext
	mgDevice *malgo.Device
}

//NewDevice creates the default system capture device
func NewDevice() Device {
	return &malgoDevice{}
}

func (d *malgoDevice) Capture(dataC chan []byte) error {
	if dataC == nil {
		return errors.New("No data channel")
	}
	mgCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return errors.Wrap(mapAccessError(err), "Can't init audio context")
	}
	devCnf := malgo.DefaultDeviceConfig(malgo.Capture)
	devCnf.Capture.Format = malgo.FormatS16
	devCnf.Capture.Channels = 1
	devCnf.SampleRate = SampleRate
	callbacks := malgo.DeviceCallbacks{
		Data: func(_, samples []byte, frameCount uint32) {
			dataC <- append([]byte{}, samples...)
		},
	}
	mgDevice, err := malgo.InitDevice(mgCtx.Context, devCnf, callbacks)
	if err != nil {
		_ = mgCtx.Uninit()
		mgCtx.Free()
		return errors.Wrap(mapAccessError(err), "Can't init capture device")
	}
	d.mgCtx = mgCtx
	d.mgDevice = mgDevice
	return nil
}

func (d *malgoDevice) Start() error {
	if d.mgDevice == nil {
		return errors.New("Device not initialized")
	}
	if d.mgDevice.IsStarted() {
		return nil
	}
	return errors.Wrap(mapAccessError(d.mgDevice.Start()), "Can't start capture device")
}

func (d *malgoDevice) Stop() error {
	if d.mgDevice == nil {
		return nil
	}
	return d.mgDevice.Stop()
}

func (d *malgoDevice) Dealloc() {
	if d.mgDevice == nil {
		return
	}
	d.mgDevice.Uninit()
	_ = d.mgCtx.Uninit()
	d.mgCtx.Free()
	d.mgDevice = nil
	d.mgCtx = nil
}

func mapAccessError(err error) error {
	if err == nil {
		return nil
	}
	s := strings.ToLower(err.Error())
	if strings.Contains(s, "access denied") || strings.Contains(s, "permission") {
		return ErrPermissionDenied
	}
	return err
}

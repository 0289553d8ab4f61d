package capture

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
)

// malgoContext implements DeviceContext on top of miniaudio.
type malgoContext struct {
	ctx *malgo.AllocatedContext
}

// NewMalgoContext initializes the platform audio backend.
func NewMalgoContext() (DeviceContext, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("init audio context: %w", err)
	}
	return &malgoContext{ctx: ctx}, nil
}

func (m *malgoContext) NewCapture(cb DataCallback) (CaptureDevice, error) {
	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = Channels
	deviceConfig.SampleRate = SampleRate

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, data []byte, frameCount uint32) {
			cb(bytesToSamples(data))
		},
	}

	dev, err := malgo.InitDevice(m.ctx.Context, deviceConfig, callbacks)
	if err != nil {
		return nil, err
	}
	return &malgoCapture{device: dev}, nil
}

func (m *malgoContext) Close() {
	_ = m.ctx.Uninit()
	m.ctx.Free()
}

type malgoCapture struct {
	device *malgo.Device
}

func (c *malgoCapture) Start() error {
	return c.device.Start()
}

func (c *malgoCapture) Stop() error {
	return c.device.Stop()
}

func (c *malgoCapture) Close() {
	c.device.Uninit()
}

func bytesToSamples(data []byte) []int16 {
	samples := make([]int16, 0, len(data)/2)
	for i := 0; i+1 < len(data); i += 2 {
		samples = append(samples, int16(binary.LittleEndian.Uint16(data[i:])))
	}
	return samples
}

// MalgoPlayer implements Player on top of miniaudio.
type MalgoPlayer struct {
	ctx *malgo.AllocatedContext

	mu     sync.Mutex
	device *malgo.Device
}

// NewMalgoPlayer initializes a playback backend.
func NewMalgoPlayer() (*MalgoPlayer, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("init playback context: %w", err)
	}
	return &MalgoPlayer{ctx: ctx}, nil
}

func (p *MalgoPlayer) Play(samples []int16, done func()) error {
	p.Stop()

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatS16
	deviceConfig.Playback.Channels = Channels
	deviceConfig.SampleRate = SampleRate

	pos := 0
	finished := false
	callbacks := malgo.DeviceCallbacks{
		Data: func(out, _ []byte, frameCount uint32) {
			for i := uint32(0); i < frameCount; i++ {
				var sample int16
				if pos < len(samples) {
					sample = samples[pos]
					pos++
				}
				binary.LittleEndian.PutUint16(out[i*2:], uint16(sample))
			}
			if pos >= len(samples) && !finished {
				finished = true
				if done != nil {
					go done()
				}
			}
		},
	}

	dev, err := malgo.InitDevice(p.ctx.Context, deviceConfig, callbacks)
	if err != nil {
		return err
	}
	if err := dev.Start(); err != nil {
		dev.Uninit()
		return err
	}

	p.mu.Lock()
	p.device = dev
	p.mu.Unlock()
	return nil
}

func (p *MalgoPlayer) Stop() {
	p.mu.Lock()
	dev := p.device
	p.device = nil
	p.mu.Unlock()

	if dev != nil {
		_ = dev.Stop()
		dev.Uninit()
	}
}

// Close releases the playback backend.
func (p *MalgoPlayer) Close() {
	p.Stop()
	_ = p.ctx.Uninit()
	p.ctx.Free()
}

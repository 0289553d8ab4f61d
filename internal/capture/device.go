package capture

// SampleRate and Channels are fixed for cry clips; 16 kHz mono matches what
// the classifier expects.
const (
	SampleRate uint32 = 16000
	Channels   uint32 = 1
)

// DataCallback receives captured PCM samples (signed 16-bit, mono).
type DataCallback func(samples []int16)

// DeviceContext abstracts the audio backend so the session state machine can
// be driven by a fake in tests.
type DeviceContext interface {
	// NewCapture opens the default capture device. The callback runs on the
	// backend's thread and must not block.
	NewCapture(cb DataCallback) (CaptureDevice, error)
	Close()
}

// CaptureDevice is an open microphone handle. Stop suspends delivery without
// releasing the device; Close releases it.
type CaptureDevice interface {
	Start() error
	Stop() error
	Close()
}

// Player plays back a finalized clip. Starting a new playback stops any
// previous one. done is invoked when playback reaches the end of the clip.
type Player interface {
	Play(samples []int16, done func()) error
	Stop()
}

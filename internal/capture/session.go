// Package capture implements the client-side recording session: microphone
// acquisition, a hard 30-second recording ceiling that survives pause/resume
// cycles, and playback of the finalized clip.
package capture

import (
	"errors"
	"sync"
	"time"
)

// MaxDuration is the hard ceiling on total recorded time per session,
// counting only intervals spent in the recording state.
const MaxDuration = 30 * time.Second

// State of a capture session.
type State int

const (
	StateIdle State = iota
	StateRecording
	StatePaused
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	default:
		return "invalid"
	}
}

var (
	// ErrDeviceUnavailable means the microphone could not be acquired or
	// failed mid-session. The attempt is terminal; the caller must call
	// Start again to retry.
	ErrDeviceUnavailable = errors.New("audio device unavailable")
	// ErrInvalidTransition means the requested operation is not legal in the
	// session's current state.
	ErrInvalidTransition = errors.New("invalid capture state transition")
	// ErrNoClip means playback was requested before a clip was finalized.
	ErrNoClip = errors.New("no finalized clip")
)

// cancelFunc cancels a scheduled deadline. Reports whether it was canceled
// before firing.
type cancelFunc func() bool

// scheduler plans the auto-stop deadline; swapped for a fake in tests.
type scheduler func(d time.Duration, fn func()) cancelFunc

// Session is the capture state machine: idle → recording ⇄ paused → stopped.
// At most one capture is active per session; the microphone is released on
// every path out of recording/paused. Elapsed time accumulates only while
// recording and is frozen while paused, so pausing preserves the remaining
// auto-stop budget.
type Session struct {
	deviceCtx DeviceContext
	player    Player
	now       func() time.Time
	schedule  scheduler

	// OnAutoStop, if set, is invoked (on the timer goroutine) after the
	// 30-second deadline finalizes the clip.
	OnAutoStop func()

	mu          sync.Mutex
	state       State
	device      CaptureDevice
	samples     []int16
	clip        []int16
	startedAt   time.Time
	accumulated time.Duration
	cancelStop  cancelFunc
	playing     bool
}

// Option configures a Session.
type Option func(*Session)

// WithClock substitutes the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithScheduler substitutes deadline scheduling (tests).
func WithScheduler(schedule func(d time.Duration, fn func()) func() bool) Option {
	return func(s *Session) {
		s.schedule = func(d time.Duration, fn func()) cancelFunc {
			return cancelFunc(schedule(d, fn))
		}
	}
}

// NewSession builds an idle session over the given audio backend. player may
// be nil if playback is never used.
func NewSession(deviceCtx DeviceContext, player Player, opts ...Option) *Session {
	s := &Session{
		deviceCtx: deviceCtx,
		player:    player,
		now:       time.Now,
		schedule: func(d time.Duration, fn func()) cancelFunc {
			t := time.AfterFunc(d, fn)
			return t.Stop
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current capture state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Elapsed returns total recorded time so far, frozen while paused and capped
// at MaxDuration.
func (s *Session) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.elapsedLocked()
}

func (s *Session) elapsedLocked() time.Duration {
	elapsed := s.accumulated
	if s.state == StateRecording {
		elapsed += s.now().Sub(s.startedAt)
	}
	if elapsed > MaxDuration {
		elapsed = MaxDuration
	}
	return elapsed
}

// Start acquires the microphone and begins recording. Valid from idle or
// stopped; any previous clip is discarded and elapsed time resets to zero.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateIdle && s.state != StateStopped {
		return ErrInvalidTransition
	}

	device, err := s.deviceCtx.NewCapture(s.appendSamples)
	if err != nil {
		return errors.Join(ErrDeviceUnavailable, err)
	}
	if err := device.Start(); err != nil {
		device.Close()
		return errors.Join(ErrDeviceUnavailable, err)
	}

	s.device = device
	s.samples = nil
	s.clip = nil
	s.accumulated = 0
	s.startedAt = s.now()
	s.state = StateRecording
	s.cancelStop = s.schedule(MaxDuration, s.autoStop)
	return nil
}

// appendSamples accumulates captured PCM. It runs on the backend thread and
// only takes effect while the session is recording.
func (s *Session) appendSamples(samples []int16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateRecording {
		return
	}
	s.samples = append(s.samples, samples...)
}

// Pause freezes the elapsed counter and suspends the auto-stop deadline.
// Valid only while recording.
func (s *Session) Pause() error {
	s.mu.Lock()
	if s.state != StateRecording {
		s.mu.Unlock()
		return ErrInvalidTransition
	}
	s.cancelDeadlineLocked()
	s.accumulated += s.now().Sub(s.startedAt)
	s.state = StatePaused
	device := s.device
	s.mu.Unlock()

	// Stop the device outside the lock: the backend blocks until an
	// in-flight data callback returns, and the callback takes s.mu.
	if err := device.Stop(); err != nil {
		// The device failed mid-session: finalize what was captured and
		// surface a hard error instead of truncating silently.
		s.fail()
		return errors.Join(ErrDeviceUnavailable, err)
	}
	return nil
}

// Resume continues a paused recording, rescheduling the auto-stop deadline
// for the remaining budget (MaxDuration minus time already recorded).
func (s *Session) Resume() error {
	s.mu.Lock()
	if s.state != StatePaused {
		s.mu.Unlock()
		return ErrInvalidTransition
	}
	if err := s.device.Start(); err != nil {
		device := s.failLocked()
		s.mu.Unlock()
		if device != nil {
			device.Close()
		}
		return errors.Join(ErrDeviceUnavailable, err)
	}
	s.startedAt = s.now()
	s.state = StateRecording
	remaining := MaxDuration - s.accumulated
	if remaining < 0 {
		remaining = 0
	}
	s.cancelStop = s.schedule(remaining, s.autoStop)
	s.mu.Unlock()
	return nil
}

// Stop finalizes the accumulated audio into an immutable clip and releases
// the microphone. Valid from recording or paused.
func (s *Session) Stop() ([]int16, error) {
	s.mu.Lock()
	if s.state != StateRecording && s.state != StatePaused {
		s.mu.Unlock()
		return nil, ErrInvalidTransition
	}
	device := s.stopLocked()
	clip := s.clip
	s.mu.Unlock()

	releaseDevice(device)
	return clip, nil
}

// autoStop fires when the 30-second budget is exhausted.
func (s *Session) autoStop() {
	s.mu.Lock()
	if s.state != StateRecording {
		s.mu.Unlock()
		return
	}
	device := s.stopLocked()
	callback := s.OnAutoStop
	s.mu.Unlock()

	releaseDevice(device)
	if callback != nil {
		callback()
	}
}

// stopLocked finalizes the clip and hands the device handle back to the
// caller, who must release it after unlocking: stopping the device blocks on
// the in-flight data callback, and the callback takes s.mu.
func (s *Session) stopLocked() CaptureDevice {
	s.cancelDeadlineLocked()
	if s.state == StateRecording {
		s.accumulated += s.now().Sub(s.startedAt)
	}
	device := s.device
	s.device = nil
	s.clip = s.finalizeLocked()
	s.state = StateStopped
	return device
}

// failLocked handles a mid-session device error: whatever audio was captured
// becomes the clip. Like stopLocked it hands the device handle back for
// release outside the lock.
func (s *Session) failLocked() CaptureDevice {
	s.cancelDeadlineLocked()
	device := s.device
	s.device = nil
	s.clip = s.finalizeLocked()
	s.state = StateStopped
	return device
}

func (s *Session) fail() {
	s.mu.Lock()
	device := s.failLocked()
	s.mu.Unlock()
	if device != nil {
		device.Close()
	}
}

func (s *Session) cancelDeadlineLocked() {
	if s.cancelStop != nil {
		s.cancelStop()
		s.cancelStop = nil
	}
}

// releaseDevice stops and closes a device handle taken out of the session.
func releaseDevice(device CaptureDevice) {
	if device != nil {
		_ = device.Stop()
		device.Close()
	}
}

func (s *Session) finalizeLocked() []int16 {
	clip := make([]int16, len(s.samples))
	copy(clip, s.samples)
	s.samples = nil
	return clip
}

// Clip returns the finalized audio, or nil before the session stopped.
func (s *Session) Clip() []int16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clip
}

// Play starts playback of the finalized clip. Only meaningful once stopped;
// starting again restarts playback from the beginning.
func (s *Session) Play() error {
	s.mu.Lock()
	if s.state != StateStopped {
		s.mu.Unlock()
		return ErrInvalidTransition
	}
	if len(s.clip) == 0 {
		s.mu.Unlock()
		return ErrNoClip
	}
	clip := s.clip
	s.playing = true
	s.mu.Unlock()

	// Play outside the lock: the player may deliver done synchronously.
	err := s.player.Play(clip, func() {
		s.mu.Lock()
		s.playing = false
		s.mu.Unlock()
	})
	if err != nil {
		s.mu.Lock()
		s.playing = false
		s.mu.Unlock()
		return err
	}
	return nil
}

// StopPlayback stops any active playback. It does not affect capture state.
func (s *Session) StopPlayback() {
	s.mu.Lock()
	playing := s.playing
	s.playing = false
	s.mu.Unlock()

	if playing {
		s.player.Stop()
	}
}

// Playing reports whether the clip is currently playing.
func (s *Session) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

package classifier

import (
	"io"

	"letbabytalk/internal/model"
)

// Fake is a Service for tests: it discards the audio and returns a canned
// result or error.
type Fake struct {
	Result *model.AnalysisResult
	Err    error

	// Calls counts Classify invocations.
	Calls int
}

// NewFake returns a Fake that answers every call with result or err.
func NewFake(result *model.AnalysisResult, err error) *Fake {
	return &Fake{Result: result, Err: err}
}

func (f *Fake) Classify(audio io.Reader, _ string, _ Metadata) (*model.AnalysisResult, error) {
	f.Calls++
	if audio != nil {
		_, _ = io.Copy(io.Discard, audio)
	}
	if f.Err != nil {
		return nil, f.Err
	}
	result := *f.Result
	return &result, nil
}

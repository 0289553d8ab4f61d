// Package classifier wraps the external cry-classification API. The service
// receives an audio clip plus metadata and returns a probability distribution
// over cry-reason labels; everything beyond the HTTP exchange is opaque.
package classifier

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"letbabytalk/internal/model"
)

// DefaultURL is the production inference endpoint.
const DefaultURL = "https://api.letbabytalk.com"

// Timeout bounds a single classification call. Uploads still succeed when
// the deadline is exceeded; the caller stores a fallback result instead.
const Timeout = 30 * time.Second

// Metadata accompanies the audio clip in the multipart request.
type Metadata struct {
	UserID      uint      `json:"-"`
	Timestamp   time.Time `json:"-"`
	AudioFormat string    `json:"audio_format"`
	Pressing    bool      `json:"pressing"`
}

// Service classifies one audio clip. Implementations must be safe for
// concurrent use.
type Service interface {
	Classify(audio io.Reader, filename string, meta Metadata) (*model.AnalysisResult, error)
}

type apiResponse struct {
	Data struct {
		Result model.ClassifierResult `json:"result"`
	} `json:"data"`
}

// Client calls the real inference endpoint.
type Client struct {
	http   *resty.Client
	logger *zap.Logger
}

// New builds a classifier client against baseURL.
func New(baseURL string, logger *zap.Logger) *Client {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(Timeout)

	return &Client{http: client, logger: logger}
}

// Classify uploads the clip and normalizes the response. The top label is the
// reported class; its confidence is looked up in the probability map.
func (c *Client) Classify(audio io.Reader, filename string, meta Metadata) (*model.AnalysisResult, error) {
	metaJSON, err := json.Marshal(map[string]any{
		"user_id":      meta.UserID,
		"timestamp":    meta.Timestamp.Unix(),
		"audio_format": meta.AudioFormat,
		"pressing":     meta.Pressing,
	})
	if err != nil {
		return nil, err
	}

	var response apiResponse
	resp, err := c.http.R().
		SetFileReader("audio", filename, audio).
		SetMultipartField("metadata", "", "application/json", strings.NewReader(string(metaJSON))).
		SetResult(&response).
		Post("/process_audio")

	if err != nil {
		c.logger.Error("classifier call failed", zap.Error(err))
		return nil, fmt.Errorf("classifier request: %w", err)
	}
	if resp.IsError() {
		c.logger.Error("classifier returned error status",
			zap.Int("status_code", resp.StatusCode()),
		)
		return nil, fmt.Errorf("classifier returned status %d", resp.StatusCode())
	}

	result := response.Data.Result
	if result.Class == "" {
		return nil, fmt.Errorf("classifier response missing class")
	}

	c.logger.Info("audio classified",
		zap.String("class", result.Class),
		zap.Float64("confidence", result.Probs[result.Class]),
	)

	return &model.AnalysisResult{
		CryType:    result.Class,
		Confidence: result.Probs[result.Class],
		RawResult:  &result,
	}, nil
}

// Fallback builds the analysis stored when classification fails, so that the
// upload itself never fails. Recommendations default to generic soothing
// advice when none are supplied.
func Fallback(recommendations []string, cause error) model.AnalysisResult {
	if len(recommendations) == 0 {
		recommendations = []string{
			"Check the basics: hunger, diaper, temperature and tiredness",
			"Offer comfort and try again with a new recording",
		}
	}
	result := model.AnalysisResult{
		CryType:         model.UnknownClass,
		Confidence:      0,
		Recommendations: recommendations,
	}
	if cause != nil {
		result.Error = cause.Error()
	}
	return result
}

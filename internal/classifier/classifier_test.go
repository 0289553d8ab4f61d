package classifier

import (
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"letbabytalk/internal/model"
)

func newMockedClient(t *testing.T) *Client {
	t.Helper()
	c := New("https://classifier.test", zap.NewNop())
	httpmock.ActivateNonDefault(c.http.GetClient())
	t.Cleanup(httpmock.DeactivateAndReset)
	return c
}

func classifyRequest(c *Client) (*model.AnalysisResult, error) {
	return c.Classify(strings.NewReader("RIFF fake wav"), "cry.wav", Metadata{
		UserID:      7,
		Timestamp:   time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC),
		AudioFormat: "wav",
	})
}

func TestClassifySuccess(t *testing.T) {
	c := newMockedClient(t)

	httpmock.RegisterResponder(http.MethodPost, "https://classifier.test/process_audio",
		httpmock.NewStringResponder(200, `{
			"data": {
				"result": {
					"class": "hunger_milk",
					"probs": {"hunger_milk": 0.8, "sleepiness": 0.2},
					"show": true
				}
			}
		}`).HeaderSet(http.Header{"Content-Type": []string{"application/json"}}))

	result, err := classifyRequest(c)
	require.NoError(t, err)

	assert.Equal(t, "hunger_milk", result.CryType)
	assert.Equal(t, 0.8, result.Confidence)
	require.NotNil(t, result.RawResult)
	assert.Equal(t, 0.2, result.RawResult.Probs["sleepiness"])
	assert.True(t, result.RawResult.Show)
}

func TestClassifyServerError(t *testing.T) {
	c := newMockedClient(t)

	httpmock.RegisterResponder(http.MethodPost, "https://classifier.test/process_audio",
		httpmock.NewStringResponder(500, `{"message":"boom"}`))

	result, err := classifyRequest(c)
	assert.Nil(t, result)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestClassifyMalformedResponse(t *testing.T) {
	c := newMockedClient(t)

	httpmock.RegisterResponder(http.MethodPost, "https://classifier.test/process_audio",
		httpmock.NewStringResponder(200, `{"data":{}}`).HeaderSet(http.Header{"Content-Type": []string{"application/json"}}))

	result, err := classifyRequest(c)
	assert.Nil(t, result)
	require.Error(t, err)
}

func TestClassifyNetworkError(t *testing.T) {
	c := newMockedClient(t)

	httpmock.RegisterResponder(http.MethodPost, "https://classifier.test/process_audio",
		httpmock.NewErrorResponder(errors.New("connection refused")))

	result, err := classifyRequest(c)
	assert.Nil(t, result)
	require.Error(t, err)
}

func TestFallback(t *testing.T) {
	result := Fallback([]string{"check the diaper"}, errors.New("timeout"))

	assert.Equal(t, model.UnknownClass, result.CryType)
	assert.Equal(t, 0.0, result.Confidence)
	assert.Equal(t, []string{"check the diaper"}, result.Recommendations)
	assert.Equal(t, "timeout", result.Error)
}

func TestFallbackDefaultRecommendations(t *testing.T) {
	result := Fallback(nil, nil)

	assert.Equal(t, model.UnknownClass, result.CryType)
	assert.NotEmpty(t, result.Recommendations, "degraded results must still carry advice")
	assert.Empty(t, result.Error)
}

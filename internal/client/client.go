// Package client is the API client used by the capture tool. The session
// cookie set by the server is carried in the client's cookie jar.
package client

import (
	"encoding/json"
	"fmt"
	"net/http/cookiejar"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"letbabytalk/internal/model"
)

// Client talks to the LetBabyTalk API server.
type Client struct {
	http *resty.Client
}

// New builds a client against baseURL (e.g. "http://localhost:8080").
func New(baseURL string) *Client {
	jar, _ := cookiejar.New(nil)
	http := resty.New().
		SetBaseURL(baseURL).
		SetCookieJar(jar).
		SetTimeout(60 * time.Second)
	return &Client{http: http}
}

type messageResponse struct {
	Message string `json:"message"`
}

func apiError(resp *resty.Response) error {
	var body messageResponse
	if err := json.Unmarshal(resp.Body(), &body); err == nil && body.Message != "" {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode(), body.Message)
	}
	return fmt.Errorf("server returned %d", resp.StatusCode())
}

// Guest creates and logs in a guest account.
func (c *Client) Guest() (*model.User, error) {
	var user model.User
	resp, err := c.http.R().
		SetResult(&user).
		Post("/api/auth/guest")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, apiError(resp)
	}
	return &user, nil
}

// Login authenticates with email and password.
func (c *Client) Login(email, password string) (*model.User, error) {
	var result struct {
		Message string     `json:"message"`
		User    model.User `json:"user"`
	}
	resp, err := c.http.R().
		SetBody(map[string]string{"email": email, "password": password}).
		SetResult(&result).
		Post("/api/auth/login")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, apiError(resp)
	}
	return &result.User, nil
}

// CreateBabyProfile registers a baby for the current user.
func (c *Client) CreateBabyProfile(name string, dateOfBirth time.Time, gender string) (*model.BabyProfile, error) {
	var profile model.BabyProfile
	resp, err := c.http.R().
		SetBody(map[string]string{
			"name":        name,
			"dateOfBirth": dateOfBirth.Format("2006-01-02"),
			"gender":      gender,
		}).
		SetResult(&profile).
		Post("/api/baby-profiles")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, apiError(resp)
	}
	return &profile, nil
}

// BabyProfiles lists the current user's babies.
func (c *Client) BabyProfiles() ([]model.BabyProfile, error) {
	var profiles []model.BabyProfile
	resp, err := c.http.R().
		SetResult(&profiles).
		Get("/api/baby-profiles")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, apiError(resp)
	}
	return profiles, nil
}

// UploadRecording uploads a clip and blocks until the server responds with
// the persisted recording, analysis included. A failed upload leaves the
// local file untouched so the caller may retry.
func (c *Client) UploadRecording(path string, duration int, babyProfileID *uint) (*model.Recording, error) {
	form := map[string]string{"duration": strconv.Itoa(duration)}
	if babyProfileID != nil {
		form["babyProfileId"] = strconv.FormatUint(uint64(*babyProfileID), 10)
	}

	var recording model.Recording
	resp, err := c.http.R().
		SetFile("audio", path).
		SetFormData(form).
		SetResult(&recording).
		Post("/api/recordings")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, apiError(resp)
	}
	return &recording, nil
}

// Recordings lists the current user's recordings, newest first.
func (c *Client) Recordings() ([]model.Recording, error) {
	var recordings []model.Recording
	resp, err := c.http.R().
		SetResult(&recordings).
		Get("/api/recordings")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, apiError(resp)
	}
	return recordings, nil
}

// Rate submits caregiver feedback for a recording.
func (c *Client) Rate(id uint, rateState, rateReason string) (*model.Recording, error) {
	var recording model.Recording
	resp, err := c.http.R().
		SetBody(map[string]string{"rateState": rateState, "rateReason": rateReason}).
		SetResult(&recording).
		Post(fmt.Sprintf("/api/recordings/%d/rate", id))
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, apiError(resp)
	}
	return &recording, nil
}

// CryReasons fetches the reference lookup data.
func (c *Client) CryReasons() ([]model.CryReasonDescription, error) {
	var reasons []model.CryReasonDescription
	resp, err := c.http.R().
		SetResult(&reasons).
		Get("/api/cry-reasons")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, apiError(resp)
	}
	return reasons, nil
}

package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"letbabytalk/internal/classifier"
	"letbabytalk/internal/helper"
	"letbabytalk/internal/model"
	"letbabytalk/internal/otp"
)

func hungerMilkResult() *model.AnalysisResult {
	return &model.AnalysisResult{
		CryType:    "hunger_milk",
		Confidence: 0.8,
		RawResult: &model.ClassifierResult{
			Class: "hunger_milk",
			Probs: map[string]float64{"hunger_milk": 0.8, "sleepiness": 0.2},
			Show:  true,
		},
	}
}

type testApp struct {
	t       *testing.T
	engine  *gin.Engine
	srv     *Server
	mails   []string
	cookies []*http.Cookie
}

func newTestApp(t *testing.T, svc classifier.Service) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, helper.Migrate(db))

	srv := New(db, svc, zap.NewNop(), t.TempDir(), t.TempDir())
	app := &testApp{t: t, srv: srv}
	srv.sendMail = func(to, subject, body string) error {
		app.mails = append(app.mails, body)
		return nil
	}

	engine := gin.New()
	engine.Use(sessions.Sessions("letbabytalk-session", cookie.NewStore([]byte("test-secret"))))
	srv.RegisterRoutes(engine)
	app.engine = engine
	return app
}

func (a *testApp) do(method, path, contentType string, body io.Reader) *httptest.ResponseRecorder {
	a.t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for _, c := range a.cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	if cs := w.Result().Cookies(); len(cs) > 0 {
		a.cookies = cs
	}
	return w
}

func (a *testApp) doJSON(method, path string, payload any) *httptest.ResponseRecorder {
	a.t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(a.t, err)
	return a.do(method, path, "application/json", bytes.NewReader(body))
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func (a *testApp) loginGuest() model.User {
	a.t.Helper()
	w := a.do(http.MethodPost, "/api/auth/guest", "", nil)
	require.Equal(a.t, http.StatusCreated, w.Code)
	return decode[model.User](a.t, w)
}

func (a *testApp) uploadRecording(fields map[string]string) *httptest.ResponseRecorder {
	a.t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	fw, err := mw.CreateFormFile("audio", "cry.wav")
	require.NoError(a.t, err)
	_, err = fw.Write([]byte("RIFF fake wav payload"))
	require.NoError(a.t, err)
	for k, v := range fields {
		require.NoError(a.t, mw.WriteField(k, v))
	}
	require.NoError(a.t, mw.Close())
	return a.do(http.MethodPost, "/api/recordings", mw.FormDataContentType(), buf)
}

func TestGuestRecordingFlow(t *testing.T) {
	app := newTestApp(t, classifier.NewFake(hungerMilkResult(), nil))

	guest := app.loginGuest()
	assert.True(t, guest.IsGuest)

	w := app.doJSON(http.MethodPost, "/api/baby-profiles", gin.H{
		"name":        "Mia",
		"dateOfBirth": "2024-01-01",
		"gender":      "female",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	mia := decode[model.BabyProfile](t, w)
	assert.Equal(t, "Mia", mia.Name)

	w = app.uploadRecording(map[string]string{
		"duration":      "12",
		"babyProfileId": fmt.Sprint(mia.ID),
	})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[model.Recording](t, w)
	assert.Equal(t, "hunger_milk", created.AnalysisResult.CryType)
	assert.Equal(t, 0.8, created.AnalysisResult.Confidence)
	require.NotNil(t, created.Duration)
	assert.Equal(t, 12, *created.Duration)
	require.NotNil(t, created.BabyProfileID)
	assert.Equal(t, mia.ID, *created.BabyProfileID)

	w = app.do(http.MethodGet, "/api/recordings", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[[]model.Recording](t, w)
	require.Len(t, list, 1)
	assert.Equal(t, "hunger_milk", list[0].AnalysisResult.CryType, "analysis is never observable as pending")

	w = app.do(http.MethodGet, fmt.Sprintf("/api/recordings/%d", created.ID), "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUploadSucceedsWhenClassifierFails(t *testing.T) {
	app := newTestApp(t, classifier.NewFake(nil, fmt.Errorf("classifier timeout")))

	app.loginGuest()
	w := app.uploadRecording(map[string]string{"duration": "8"})
	require.Equal(t, http.StatusCreated, w.Code, "upload must succeed even when classification fails")

	created := decode[model.Recording](t, w)
	assert.Equal(t, model.UnknownClass, created.AnalysisResult.CryType)
	assert.Equal(t, 0.0, created.AnalysisResult.Confidence)
	assert.NotEmpty(t, created.AnalysisResult.Recommendations)
	assert.Contains(t, created.AnalysisResult.Error, "timeout")
}

func TestUploadValidation(t *testing.T) {
	app := newTestApp(t, classifier.NewFake(hungerMilkResult(), nil))

	// No session at all
	w := app.uploadRecording(nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	app.loginGuest()

	// Missing audio part
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	require.NoError(t, mw.WriteField("duration", "5"))
	require.NoError(t, mw.Close())
	w = app.do(http.MethodPost, "/api/recordings", mw.FormDataContentType(), buf)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.uploadRecording(map[string]string{"duration": "abc"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecordingsNewestFirst(t *testing.T) {
	app := newTestApp(t, classifier.NewFake(hungerMilkResult(), nil))
	app.loginGuest()

	first := decode[model.Recording](t, app.uploadRecording(nil))
	second := decode[model.Recording](t, app.uploadRecording(nil))

	list := decode[[]model.Recording](t, app.do(http.MethodGet, "/api/recordings", "", nil))
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
}

func TestUploadRejectsForeignBabyProfile(t *testing.T) {
	app := newTestApp(t, classifier.NewFake(hungerMilkResult(), nil))

	app.loginGuest()
	mia := decode[model.BabyProfile](t, app.doJSON(http.MethodPost, "/api/baby-profiles", gin.H{
		"name": "Mia", "dateOfBirth": "2024-01-01", "gender": "female",
	}))

	// A different user cannot attach a recording to Mia's profile.
	app.cookies = nil
	app.loginGuest()
	w := app.uploadRecording(map[string]string{"babyProfileId": fmt.Sprint(mia.ID)})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = app.uploadRecording(map[string]string{"babyProfileId": "999"})
	assert.Equal(t, http.StatusNotFound, w.Code, "a nonexistent profile reads the same as a foreign one")
}

func TestRecordingNotOwnedReadsAsNotFound(t *testing.T) {
	app := newTestApp(t, classifier.NewFake(hungerMilkResult(), nil))

	app.loginGuest()
	created := decode[model.Recording](t, app.uploadRecording(nil))

	// A different user sees 404, not 403.
	app.cookies = nil
	app.loginGuest()
	w := app.do(http.MethodGet, fmt.Sprintf("/api/recordings/%d", created.ID), "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = app.doJSON(http.MethodPost, fmt.Sprintf("/api/recordings/%d/rate", created.ID), gin.H{"rateState": "good"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRateValidationAndOverwrite(t *testing.T) {
	app := newTestApp(t, classifier.NewFake(hungerMilkResult(), nil))
	app.loginGuest()
	created := decode[model.Recording](t, app.uploadRecording(nil))
	ratePath := fmt.Sprintf("/api/recordings/%d/rate", created.ID)

	w := app.doJSON(http.MethodPost, ratePath, gin.H{"rateState": "ugly"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.doJSON(http.MethodPost, ratePath, gin.H{"rateState": "good"})
	require.Equal(t, http.StatusOK, w.Code)
	rated := decode[model.Recording](t, w)
	require.NotNil(t, rated.RateState)
	assert.Equal(t, "good", *rated.RateState)

	// A repeated rating overwrites the previous one.
	w = app.doJSON(http.MethodPost, ratePath, gin.H{
		"rateState":  "bad",
		"rateReason": "sounded more like sleepiness",
	})
	require.Equal(t, http.StatusOK, w.Code)
	rated = decode[model.Recording](t, w)
	require.NotNil(t, rated.RateState)
	assert.Equal(t, "bad", *rated.RateState)
	assert.Equal(t, "sounded more like sleepiness", rated.RateReason)

	// The analysis itself is untouched by rating.
	assert.Equal(t, "hunger_milk", rated.AnalysisResult.CryType)
}

func TestVote(t *testing.T) {
	app := newTestApp(t, classifier.NewFake(hungerMilkResult(), nil))
	app.loginGuest()
	created := decode[model.Recording](t, app.uploadRecording(nil))
	votePath := fmt.Sprintf("/api/recordings/%d/vote", created.ID)

	w := app.doJSON(http.MethodPost, votePath, gin.H{"vote": "maybe"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.doJSON(http.MethodPost, votePath, gin.H{"vote": "good"})
	require.Equal(t, http.StatusOK, w.Code)
	voted := decode[model.Recording](t, w)
	require.NotNil(t, voted.RateState)
	assert.Equal(t, "good", *voted.RateState)
}

func TestVoteClearsEarlierRateReason(t *testing.T) {
	app := newTestApp(t, classifier.NewFake(hungerMilkResult(), nil))
	app.loginGuest()
	created := decode[model.Recording](t, app.uploadRecording(nil))

	w := app.doJSON(http.MethodPost, fmt.Sprintf("/api/recordings/%d/rate", created.ID), gin.H{
		"rateState":  "bad",
		"rateReason": "sounded like sleepiness",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = app.doJSON(http.MethodPost, fmt.Sprintf("/api/recordings/%d/vote", created.ID), gin.H{"vote": "good"})
	require.Equal(t, http.StatusOK, w.Code)
	voted := decode[model.Recording](t, w)
	require.NotNil(t, voted.RateState)
	assert.Equal(t, "good", *voted.RateState)
	assert.Empty(t, voted.RateReason, "a vote must not keep the dispute reason from an earlier rating")
}

func TestRegisterAndLogin(t *testing.T) {
	app := newTestApp(t, classifier.NewFake(hungerMilkResult(), nil))

	w := app.doJSON(http.MethodPost, "/api/auth/register", gin.H{"password": "secret123"})
	assert.Equal(t, http.StatusBadRequest, w.Code, "email or phone is required")

	w = app.doJSON(http.MethodPost, "/api/auth/register", gin.H{"email": "mia@example.com", "password": "123"})
	assert.Equal(t, http.StatusBadRequest, w.Code, "short passwords are rejected")

	w = app.doJSON(http.MethodPost, "/api/auth/register", gin.H{
		"email":     "Mia@Example.com",
		"password":  "secret123",
		"firstName": "Mia",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = app.doJSON(http.MethodPost, "/api/auth/register", gin.H{"email": "mia@example.com", "password": "secret123"})
	assert.Equal(t, http.StatusBadRequest, w.Code, "duplicate email is rejected")

	w = app.doJSON(http.MethodPost, "/api/auth/login", gin.H{"email": "mia@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = app.doJSON(http.MethodPost, "/api/auth/login", gin.H{"email": "mia@example.com", "password": "secret123"})
	require.Equal(t, http.StatusOK, w.Code)

	w = app.do(http.MethodGet, "/api/auth/user", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	user := decode[model.User](t, w)
	require.NotNil(t, user.Email)
	assert.Equal(t, "mia@example.com", *user.Email, "emails are stored lowercased")

	w = app.do(http.MethodPost, "/api/auth/logout", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = app.do(http.MethodGet, "/api/auth/user", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestForgotPasswordFlow(t *testing.T) {
	app := newTestApp(t, classifier.NewFake(hungerMilkResult(), nil))

	w := app.doJSON(http.MethodPost, "/api/auth/register", gin.H{"email": "mia@example.com", "password": "secret123"})
	require.Equal(t, http.StatusCreated, w.Code)

	// Same answer whether or not the account exists.
	w = app.doJSON(http.MethodPost, "/api/auth/forgot-password", gin.H{"email": "nobody@example.com"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, app.mails)

	w = app.doJSON(http.MethodPost, "/api/auth/forgot-password", gin.H{"email": "mia@example.com"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, app.mails, 1)

	// Resetting without verification is refused.
	w = app.doJSON(http.MethodPost, "/api/auth/reset-password", gin.H{"email": "mia@example.com", "password": "newsecret"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Issue a known code directly against the store to drive the flow.
	code, err := app.srv.otp.Issue("mia@example.com", otp.TypeReset)
	require.NoError(t, err)

	w = app.doJSON(http.MethodPost, "/api/auth/verify-otp", gin.H{"email": "mia@example.com", "code": "000000", "type": "reset"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.doJSON(http.MethodPost, "/api/auth/verify-otp", gin.H{"email": "mia@example.com", "code": code, "type": "reset"})
	require.Equal(t, http.StatusOK, w.Code)

	w = app.doJSON(http.MethodPost, "/api/auth/reset-password", gin.H{"email": "mia@example.com", "password": "newsecret"})
	require.Equal(t, http.StatusOK, w.Code)

	w = app.doJSON(http.MethodPost, "/api/auth/login", gin.H{"email": "mia@example.com", "password": "newsecret"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBabyProfileCRUD(t *testing.T) {
	app := newTestApp(t, classifier.NewFake(hungerMilkResult(), nil))
	app.loginGuest()

	w := app.doJSON(http.MethodPost, "/api/baby-profiles", gin.H{"name": "Mia", "dateOfBirth": "2024-01-01", "gender": "other"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.doJSON(http.MethodPost, "/api/baby-profiles", gin.H{"dateOfBirth": "2024-01-01", "gender": "female"})
	assert.Equal(t, http.StatusBadRequest, w.Code, "name is required")

	w = app.doJSON(http.MethodPost, "/api/baby-profiles", gin.H{"name": "Mia", "dateOfBirth": "2024-01-01", "gender": "female"})
	require.Equal(t, http.StatusCreated, w.Code)
	mia := decode[model.BabyProfile](t, w)

	list := decode[[]model.BabyProfile](t, app.do(http.MethodGet, "/api/baby-profiles", "", nil))
	require.Len(t, list, 1)

	w = app.doJSON(http.MethodPut, fmt.Sprintf("/api/baby-profiles/%d", mia.ID), gin.H{
		"name": "Mia Rose", "dateOfBirth": "2024-01-01", "gender": "female",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Mia Rose", decode[model.BabyProfile](t, w).Name)

	w = app.do(http.MethodDelete, fmt.Sprintf("/api/baby-profiles/%d", mia.ID), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = app.do(http.MethodGet, fmt.Sprintf("/api/baby-profiles/%d", mia.ID), "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeletedProfileLeavesRecordingsDangling(t *testing.T) {
	app := newTestApp(t, classifier.NewFake(hungerMilkResult(), nil))
	app.loginGuest()

	mia := decode[model.BabyProfile](t, app.doJSON(http.MethodPost, "/api/baby-profiles", gin.H{
		"name": "Mia", "dateOfBirth": "2024-01-01", "gender": "female",
	}))
	created := decode[model.Recording](t, app.uploadRecording(map[string]string{"babyProfileId": fmt.Sprint(mia.ID)}))

	w := app.do(http.MethodDelete, fmt.Sprintf("/api/baby-profiles/%d", mia.ID), "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	// The recording keeps its (now dangling) reference.
	got := decode[model.Recording](t, app.do(http.MethodGet, fmt.Sprintf("/api/recordings/%d", created.ID), "", nil))
	require.NotNil(t, got.BabyProfileID)
	assert.Equal(t, mia.ID, *got.BabyProfileID)
}

func TestCryReasons(t *testing.T) {
	app := newTestApp(t, classifier.NewFake(hungerMilkResult(), nil))

	list := decode[[]model.CryReasonDescription](t, app.do(http.MethodGet, "/api/cry-reasons", "", nil))
	assert.Len(t, list, len(model.CanonicalClasses))

	w := app.do(http.MethodGet, "/api/cry-reasons/hunger_milk", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	reason := decode[model.CryReasonDescription](t, w)
	assert.Equal(t, "Hungry for milk", reason.Title)
	assert.NotEmpty(t, reason.Recommendations)

	w = app.do(http.MethodGet, "/api/cry-reasons/not_a_reason", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLegalDocumentLocaleFallback(t *testing.T) {
	app := newTestApp(t, classifier.NewFake(hungerMilkResult(), nil))

	w := app.do(http.MethodGet, "/api/legal-documents/terms/en", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "en", decode[model.LegalDocument](t, w).Locale)

	// Unknown locale falls back to English.
	w = app.do(http.MethodGet, "/api/legal-documents/terms/fr", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "en", decode[model.LegalDocument](t, w).Locale)

	require.NoError(t, app.srv.db.Create(&model.LegalDocument{
		Type: "terms", Locale: "zh", Title: "服务条款", Content: "<h1>服务条款</h1>",
	}).Error)

	w = app.do(http.MethodGet, "/api/legal-documents/terms/zh-CN", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "zh", decode[model.LegalDocument](t, w).Locale)

	w = app.do(http.MethodGet, "/api/legal-documents/unknown-type/en", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateProfileRole(t *testing.T) {
	app := newTestApp(t, classifier.NewFake(hungerMilkResult(), nil))
	app.loginGuest()

	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	require.NoError(t, mw.WriteField("userRole", "mother"))
	require.NoError(t, mw.Close())

	w := app.do(http.MethodPut, "/api/auth/profile", mw.FormDataContentType(), buf)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "mother", decode[model.User](t, w).UserRole)
}

package server

import (
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"letbabytalk/internal/classifier"
	"letbabytalk/internal/model"
)

func (s *Server) listRecordings(c *gin.Context) {
	userID, _ := currentUserID(c)

	var recordings []model.Recording
	err := s.db.Where("user_id = ?", userID).
		Order("recorded_at DESC, id DESC").
		Find(&recordings).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Could not load recordings"})
		return
	}
	c.JSON(http.StatusOK, recordings)
}

// createRecording accepts the uploaded clip, classifies it synchronously and
// persists the recording together with its analysis result. Classification
// failures are absorbed into a fallback result; the upload itself only fails
// on malformed input or storage errors. The temporary audio file is removed
// after persistence on both paths.
func (s *Server) createRecording(c *gin.Context) {
	userID, _ := currentUserID(c)

	file, err := c.FormFile("audio")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Audio file is required"})
		return
	}

	var duration *int
	if v := c.PostForm("duration"); v != "" {
		// Durations arrive as integer seconds, floored by the client.
		d, err := strconv.Atoi(v)
		if err != nil || d < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"message": "duration must be a non-negative integer"})
			return
		}
		duration = &d
	}

	var babyProfileID *uint
	if v := c.PostForm("babyProfileId"); v != "" {
		id, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "babyProfileId must be an integer"})
			return
		}
		// The profile must belong to the uploader; another user's profile
		// reads as not found.
		var profile model.BabyProfile
		err = s.db.Where("id = ? AND user_id = ?", uint(id), userID).First(&profile).Error
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"message": "Baby profile not found"})
			return
		}
		babyProfileID = &profile.ID
	}

	ext := filepath.Ext(file.Filename)
	if ext == "" {
		ext = ".wav"
	}
	filename := uuid.NewString() + ext
	localPath := filepath.Join(s.dataDir, filename)

	if err := c.SaveUploadedFile(file, localPath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Could not store audio file"})
		return
	}
	defer os.Remove(localPath)

	result := s.classify(userID, localPath, filename, ext)

	recording := model.Recording{
		UserID:         userID,
		BabyProfileID:  babyProfileID,
		Filename:       filename,
		Duration:       duration,
		AnalysisResult: result,
		RecordedAt:     time.Now(),
	}
	if err := s.db.Create(&recording).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Could not save recording"})
		return
	}

	s.logger.Info("recording created",
		zap.Uint("user_id", userID),
		zap.Uint("recording_id", recording.ID),
		zap.String("cry_type", result.CryType),
	)
	c.JSON(http.StatusCreated, recording)
}

// classify runs the external classifier and falls back to an "unknown"
// result on any failure so that the upload still succeeds.
func (s *Server) classify(userID uint, localPath, filename, ext string) model.AnalysisResult {
	audio, err := os.Open(localPath)
	if err != nil {
		s.logger.Error("could not reopen uploaded audio", zap.Error(err))
		return classifier.Fallback(s.fallbackRecommendations(), err)
	}
	defer audio.Close()

	meta := classifier.Metadata{
		UserID:      userID,
		Timestamp:   time.Now(),
		AudioFormat: strings.TrimPrefix(ext, "."),
	}
	result, err := s.classifier.Classify(audio, filename, meta)
	if err != nil {
		s.logger.Warn("classification failed, storing fallback result",
			zap.Uint("user_id", userID),
			zap.Error(err),
		)
		return classifier.Fallback(s.fallbackRecommendations(), err)
	}
	return *result
}

// fallbackRecommendations pulls the generic advice seeded for the unknown
// class, so degraded results still carry something actionable.
func (s *Server) fallbackRecommendations() []string {
	var reason model.CryReasonDescription
	if err := s.db.Where("class_name = ?", model.UnknownClass).First(&reason).Error; err != nil {
		return nil
	}
	return reason.Recommendations
}

// findOwnedRecording fetches a recording only if it belongs to the user.
// Not-owned reads as not found to avoid leaking existence.
func (s *Server) findOwnedRecording(c *gin.Context) (*model.Recording, bool) {
	userID, _ := currentUserID(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Recording not found"})
		return nil, false
	}

	var recording model.Recording
	err = s.db.Where("id = ? AND user_id = ?", uint(id), userID).First(&recording).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Recording not found"})
		return nil, false
	}
	return &recording, true
}

func (s *Server) getRecording(c *gin.Context) {
	recording, ok := s.findOwnedRecording(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, recording)
}

type rateRequest struct {
	RateState  string `json:"rateState"`
	RateReason string `json:"rateReason"`
}

// rateRecording applies caregiver feedback. Repeated calls overwrite the
// previous rating.
func (s *Server) rateRecording(c *gin.Context) {
	var req rateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}
	if req.RateState != model.RateGood && req.RateState != model.RateBad {
		c.JSON(http.StatusBadRequest, gin.H{"message": "rateState must be \"good\" or \"bad\""})
		return
	}

	recording, ok := s.findOwnedRecording(c)
	if !ok {
		return
	}

	recording.RateState = &req.RateState
	recording.RateReason = req.RateReason
	if err := s.db.Save(recording).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Could not save rating"})
		return
	}
	c.JSON(http.StatusOK, recording)
}

type voteRequest struct {
	Vote string `json:"vote"`
}

// voteRecording is the lightweight variant of rating: only the good/bad
// state, no reason.
func (s *Server) voteRecording(c *gin.Context) {
	var req voteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}
	if req.Vote != model.RateGood && req.Vote != model.RateBad {
		c.JSON(http.StatusBadRequest, gin.H{"message": "vote must be \"good\" or \"bad\""})
		return
	}

	recording, ok := s.findOwnedRecording(c)
	if !ok {
		return
	}

	// A vote replaces the whole rating; a reason from an earlier rate call
	// must not survive attached to the new state.
	recording.RateState = &req.Vote
	recording.RateReason = ""
	if err := s.db.Save(recording).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Could not save vote"})
		return
	}
	c.JSON(http.StatusOK, recording)
}

package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"letbabytalk/internal/model"
)

type babyProfileRequest struct {
	Name        string `json:"name"`
	DateOfBirth string `json:"dateOfBirth"`
	Gender      string `json:"gender"`
	Photo       string `json:"photo"`
}

func (r babyProfileRequest) validate() (time.Time, string) {
	if r.Name == "" {
		return time.Time{}, "Name is required"
	}
	if r.Gender != "male" && r.Gender != "female" {
		return time.Time{}, "Gender must be \"male\" or \"female\""
	}
	dob, err := time.Parse("2006-01-02", r.DateOfBirth)
	if err != nil {
		return time.Time{}, "dateOfBirth must be in YYYY-MM-DD format"
	}
	return dob, ""
}

func (s *Server) listBabyProfiles(c *gin.Context) {
	userID, _ := currentUserID(c)

	var profiles []model.BabyProfile
	if err := s.db.Where("user_id = ?", userID).Find(&profiles).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Could not load baby profiles"})
		return
	}
	c.JSON(http.StatusOK, profiles)
}

func (s *Server) createBabyProfile(c *gin.Context) {
	userID, _ := currentUserID(c)

	var req babyProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}
	dob, msg := req.validate()
	if msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": msg})
		return
	}

	profile := model.BabyProfile{
		UserID:      userID,
		Name:        req.Name,
		DateOfBirth: dob,
		Gender:      req.Gender,
		Photo:       req.Photo,
	}
	if err := s.db.Create(&profile).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Could not create baby profile"})
		return
	}
	c.JSON(http.StatusCreated, profile)
}

// findOwnedBabyProfile fetches a profile only if it belongs to the user.
// Missing and not-owned both read as not found.
func (s *Server) findOwnedBabyProfile(c *gin.Context) (*model.BabyProfile, bool) {
	userID, _ := currentUserID(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Baby profile not found"})
		return nil, false
	}

	var profile model.BabyProfile
	err = s.db.Where("id = ? AND user_id = ?", uint(id), userID).First(&profile).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Baby profile not found"})
		return nil, false
	}
	return &profile, true
}

func (s *Server) getBabyProfile(c *gin.Context) {
	profile, ok := s.findOwnedBabyProfile(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (s *Server) updateBabyProfile(c *gin.Context) {
	profile, ok := s.findOwnedBabyProfile(c)
	if !ok {
		return
	}

	var req babyProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}
	dob, msg := req.validate()
	if msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": msg})
		return
	}

	profile.Name = req.Name
	profile.DateOfBirth = dob
	profile.Gender = req.Gender
	profile.Photo = req.Photo
	if err := s.db.Save(profile).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Could not update baby profile"})
		return
	}
	c.JSON(http.StatusOK, profile)
}

// deleteBabyProfile removes the profile. Recordings keep their
// babyProfileId; the reference simply dangles.
func (s *Server) deleteBabyProfile(c *gin.Context) {
	profile, ok := s.findOwnedBabyProfile(c)
	if !ok {
		return
	}

	if err := s.db.Delete(profile).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Could not delete baby profile"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Baby profile deleted"})
}

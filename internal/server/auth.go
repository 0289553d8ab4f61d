package server

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"letbabytalk/internal/model"
	"letbabytalk/internal/otp"
)

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), 14)
	return string(bytes), err
}

type registerRequest struct {
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

func (s *Server) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Phone = strings.TrimSpace(req.Phone)

	if req.Email == "" && req.Phone == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Email or phone is required"})
		return
	}
	if len(req.Password) < 6 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Password must be at least 6 characters"})
		return
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Could not create user"})
		return
	}

	user := model.User{
		Password:  hash,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}
	if req.Email != "" {
		user.Email = &req.Email
	}
	if req.Phone != "" {
		user.Phone = &req.Phone
	}

	if err := s.db.Create(&user).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "An account with this email or phone already exists"})
		return
	}

	s.logger.Info("user registered", zap.Uint("user_id", user.ID))
	c.JSON(http.StatusCreated, gin.H{"message": "Registration successful", "userId": user.ID})
}

type loginRequest struct {
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// findUserByIdentifier looks a user up by email or phone.
func (s *Server) findUserByIdentifier(email, phone string) (*model.User, error) {
	var user model.User
	query := s.db
	switch {
	case email != "":
		query = query.Where("email = ?", strings.ToLower(email))
	case phone != "":
		query = query.Where("phone = ?", phone)
	default:
		return nil, gorm.ErrRecordNotFound
	}
	if err := query.First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}

	user, err := s.findUserByIdentifier(req.Email, req.Phone)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid credentials provided"})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid credentials provided"})
		return
	}

	if err := loginSession(c, user.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Could not create session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Login successful", "user": user})
}

func (s *Server) logout(c *gin.Context) {
	if err := clearSession(c); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Could not clear session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// guest creates an unauthenticated-but-session-bound account so the app is
// usable before sign-up. The placeholder identity can later be replaced by a
// real registration.
func (s *Server) guest(c *gin.Context) {
	identity := fmt.Sprintf("guest_%s@guest.letbabytalk.com", uuid.NewString())

	hash, err := hashPassword(uuid.NewString())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Could not create guest"})
		return
	}

	user := model.User{
		Email:    &identity,
		Password: hash,
		IsGuest:  true,
	}
	if err := s.db.Create(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Could not create guest"})
		return
	}

	if err := loginSession(c, user.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Could not create session"})
		return
	}

	s.logger.Info("guest account created", zap.Uint("user_id", user.ID))
	c.JSON(http.StatusCreated, user)
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// forgotPassword always answers 200 so account existence cannot be probed.
func (s *Server) forgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil || (req.Email == "" && req.Phone == "") {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Email or phone is required"})
		return
	}

	response := gin.H{"message": "If the account exists, a verification code has been sent"}

	user, err := s.findUserByIdentifier(req.Email, req.Phone)
	if err != nil {
		c.JSON(http.StatusOK, response)
		return
	}

	identifier := identifierOf(req.Email, req.Phone)
	code, err := s.otp.Issue(identifier, otp.TypeReset)
	if err != nil {
		s.logger.Error("failed to issue otp", zap.Error(err))
		c.JSON(http.StatusOK, response)
		return
	}

	if req.Email != "" && user.Email != nil {
		body := fmt.Sprintf("Your password reset code is <b>%s</b>. It expires in 10 minutes.", code)
		if err := s.sendMail(*user.Email, "Password Reset", body); err != nil {
			s.logger.Error("failed to send otp email", zap.Error(err))
		}
	} else {
		// No SMS provider is wired up; the code is only logged.
		s.logger.Info("otp issued for phone account", zap.String("phone", req.Phone))
	}

	c.JSON(http.StatusOK, response)
}

func identifierOf(email, phone string) string {
	if email != "" {
		return strings.ToLower(email)
	}
	return phone
}

type verifyOTPRequest struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
	Code  string `json:"code"`
	Type  string `json:"type"`
}

func (s *Server) verifyOTP(c *gin.Context) {
	var req verifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil || (req.Email == "" && req.Phone == "") || req.Code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}
	if req.Type == "" {
		req.Type = otp.TypeReset
	}

	if !s.otp.Verify(identifierOf(req.Email, req.Phone), req.Type, req.Code) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid or expired code"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Code verified"})
}

type resetPasswordRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) resetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}
	if len(req.Password) < 6 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Password must be at least 6 characters"})
		return
	}

	if !s.otp.ConsumeVerified(strings.ToLower(req.Email)) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Verification required before resetting the password"})
		return
	}

	user, err := s.findUserByIdentifier(req.Email, "")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Could not reset password"})
		return
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Could not reset password"})
		return
	}

	user.Password = hash
	if err := s.db.Save(user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Could not reset password"})
		return
	}

	s.logger.Info("password reset", zap.Uint("user_id", user.ID))
	c.JSON(http.StatusOK, gin.H{"message": "Password reset successful"})
}

func (s *Server) getUser(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Authentication required"})
		return
	}

	var user model.User
	if err := s.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Session references a deleted account; force re-login.
			_ = clearSession(c)
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Authentication required"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Could not load user"})
		return
	}

	c.JSON(http.StatusOK, user)
}

// updateProfile accepts a multipart form with a userRole field and an
// optional profileImage file stored on local disk.
func (s *Server) updateProfile(c *gin.Context) {
	userID, _ := currentUserID(c)

	var user model.User
	if err := s.db.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Authentication required"})
		return
	}

	if role := c.PostForm("userRole"); role != "" {
		user.UserRole = role
	}

	if file, err := c.FormFile("profileImage"); err == nil {
		filename := uuid.NewString() + filepath.Ext(file.Filename)
		if err := c.SaveUploadedFile(file, filepath.Join(s.imageDir, filename)); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Could not store profile image"})
			return
		}
		user.ProfileImage = filename
	}

	if err := s.db.Save(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Could not update profile"})
		return
	}

	c.JSON(http.StatusOK, user)
}

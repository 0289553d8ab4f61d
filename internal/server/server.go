// Package server holds the HTTP handlers for the LetBabyTalk API.
package server

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"letbabytalk/internal/classifier"
	"letbabytalk/internal/helper"
	"letbabytalk/internal/otp"
)

// Server bundles the dependencies the handlers work against.
type Server struct {
	db         *gorm.DB
	classifier classifier.Service
	otp        *otp.Store
	logger     *zap.Logger
	dataDir    string
	imageDir   string

	// sendMail delivers transactional email; replaced in tests.
	sendMail func(to, subject, body string) error
}

// New builds a Server. dataDir receives uploaded audio; profile images go to
// imageDir.
func New(db *gorm.DB, svc classifier.Service, logger *zap.Logger, dataDir, imageDir string) *Server {
	return &Server{
		db:         db,
		classifier: svc,
		otp:        otp.NewStore(),
		logger:     logger,
		dataDir:    dataDir,
		imageDir:   imageDir,
		sendMail:   helper.SendEmail,
	}
}

package server

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes wires all API routes onto the engine.
func (s *Server) RegisterRoutes(app *gin.Engine) {

	// Use the setUserStatus middleware for every route to set a flag
	// indicating whether the request was from an authenticated user or not
	app.Use(setUserStatus())

	api := app.Group("/api")

	// Group auth related routes together
	authRoutes := api.Group("/auth")
	{
		authRoutes.POST("/register", s.register)
		authRoutes.POST("/login", s.login)
		authRoutes.POST("/logout", s.logout)
		authRoutes.POST("/guest", s.guest)
		authRoutes.POST("/forgot-password", s.forgotPassword)
		authRoutes.POST("/verify-otp", s.verifyOTP)
		authRoutes.POST("/reset-password", s.resetPassword)
		authRoutes.GET("/user", ensureLoggedIn(), s.getUser)
		authRoutes.PUT("/profile", ensureLoggedIn(), s.updateProfile)
	}

	// Baby profile CRUD, scoped to the authenticated user
	babyRoutes := api.Group("/baby-profiles", ensureLoggedIn())
	{
		babyRoutes.GET("", s.listBabyProfiles)
		babyRoutes.POST("", s.createBabyProfile)
		babyRoutes.GET("/:id", s.getBabyProfile)
		babyRoutes.PUT("/:id", s.updateBabyProfile)
		babyRoutes.DELETE("/:id", s.deleteBabyProfile)
	}

	// Group recording related routes together
	recordingRoutes := api.Group("/recordings", ensureLoggedIn())
	{
		recordingRoutes.GET("", s.listRecordings)
		recordingRoutes.POST("", s.createRecording)
		recordingRoutes.GET("/:id", s.getRecording)
		recordingRoutes.POST("/:id/rate", s.rateRecording)
		recordingRoutes.POST("/:id/vote", s.voteRecording)
	}

	// Reference lookup data
	api.GET("/cry-reasons", s.listCryReasons)
	api.GET("/cry-reasons/:className", s.getCryReason)

	// Localized legal documents
	api.GET("/legal-documents/:type/:locale", s.getLegalDocument)

	// Static files; audio requires auth, images do not
	api.GET("/audio/:filename", ensureLoggedIn(), s.serveAudio)
	api.GET("/images/:filename", s.serveImage)
}

package main

import (
	"os"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"letbabytalk/internal/classifier"
	"letbabytalk/internal/helper"
	"letbabytalk/internal/server"
)

func main() {
	// Set Gin to production mode
	gin.SetMode(gin.ReleaseMode)

	logger, err := helper.InitLogger()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	// Connect to the database, migrate the schema and seed reference data
	if err := helper.ConnectDB(); err != nil {
		logger.Fatal("database setup failed", zap.Error(err))
	}

	// Make sure the upload directories exist
	if err := os.MkdirAll(helper.ImageDir(), 0o755); err != nil {
		logger.Fatal("could not create data directories", zap.Error(err))
	}

	svc := classifier.New(helper.GetConfigDefault("CLASSIFIER_URL", classifier.DefaultURL), logger)
	srv := server.New(helper.DB, svc, logger, helper.DataDir(), helper.ImageDir())

	// Set the router as the default one provided by Gin
	app := gin.Default()

	// Enable cookie session
	store := cookie.NewStore([]byte(helper.GetConfig("SESSION_KEY")))
	app.Use(sessions.Sessions("letbabytalk-session", store))

	// Initialize the routes
	srv.RegisterRoutes(app)

	// Start serving the application
	addr := ":" + helper.GetConfigDefault("PORT", "8080")
	logger.Info("starting server", zap.String("addr", addr))
	if err := app.Run(addr); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

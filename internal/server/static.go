package server

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
)

// serveFile serves a file from dir by its base name, refusing anything that
// would escape the directory.
func serveFile(c *gin.Context, dir, name string) {
	path := filepath.Join(dir, filepath.Base(name))
	if _, err := os.Stat(path); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "File not found"})
		return
	}
	c.File(path)
}

func (s *Server) serveAudio(c *gin.Context) {
	serveFile(c, s.dataDir, c.Param("filename"))
}

func (s *Server) serveImage(c *gin.Context) {
	serveFile(c, s.imageDir, c.Param("filename"))
}

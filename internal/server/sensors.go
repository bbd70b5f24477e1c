package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CurrentReading returns the last successfully parsed sensor reading.
// Before the first reading arrives there is nothing to show.
func (s *Server) CurrentReading(c *gin.Context) {
	reading := s.sensorHub.Current()
	if reading == nil {
		AbortWithError(c, ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, reading)
}

func (s *Server) ConnectionStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.sensorHub.Status())
}

package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// MessageBody is the acknowledgement shape used by mutating endpoints.
type MessageBody struct {
	Message string `json:"message"`
}

// JSON writes a JSON response with the given status.
func JSON(c *gin.Context, status int, payload interface{}) {
	c.JSON(status, payload)
}

// OK writes a 200 OK JSON response.
func OK(c *gin.Context, payload interface{}) {
	JSON(c, http.StatusOK, payload)
}

// Message writes {"message": msg} with the given status.
func Message(c *gin.Context, status int, msg string) {
	JSON(c, status, MessageBody{Message: msg})
}

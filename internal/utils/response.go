package utils

import "github.com/gin-gonic/gin"

// Success writes data as the JSON body of a 200 response
func Success(c *gin.Context, data any) {
	c.JSON(200, data)
}

func Error(c *gin.Context, code int, msg string) {
	c.JSON(code, gin.H{
		"success": false,
		"error":   msg,
	})
}

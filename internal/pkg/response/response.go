package response

import "github.com/gin-gonic/gin"

// Error codes shared by the handlers.
const (
	CodeStorage     = "STORAGE_ERROR"
	CodeDatabase    = "DATABASE_ERROR"
	CodeTooLarge    = "FILE_TOO_LARGE"
	CodeMissingFile = "MISSING_FILE"
	CodeNotFound    = "NOT_FOUND"
	CodeInvalidID   = "INVALID_ID"
	CodeInternal    = "INTERNAL_SERVER_ERROR"
)

func Success(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, data)
}

func Error(c *gin.Context, statusCode int, code string, message string) {
	c.JSON(statusCode, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

func ErrorWithDetails(c *gin.Context, statusCode int, code string, message string, details any) {
	c.JSON(statusCode, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}

// Fail records err on the context for the error logger and writes the error body.
func Fail(c *gin.Context, statusCode int, code string, err error) {
	_ = c.Error(err)
	Error(c, statusCode, code, err.Error())
}

package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// EditModeHeader is the request header that signals the caller has explicitly
// entered edit mode on an approved record. Without it, approved records stay
// read-only even for admins.
const EditModeHeader = "X-Edit-Mode"

// EditMode reports whether the request opted into edit mode.
func EditMode(c *gin.Context) bool {
	value := strings.TrimSpace(c.GetHeader(EditModeHeader))
	return strings.EqualFold(value, "true") || value == "1"
}

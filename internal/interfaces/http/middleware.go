package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tallyhq/approvals/internal/domain/entity"
)

// callerKey is the gin context key holding the authenticated employee.
const callerKey = "caller"

// authMiddleware resolves the Bearer token to an employee and aborts with
// 401 when the token is missing or unknown.
func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
				Success: false,
				Error:   "missing bearer token",
			})
			return
		}

		employee, err := s.employees.GetByToken(c.Request.Context(), token)
		if err != nil {
			s.logger.Error("Token lookup failed", "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, Response{
				Success: false,
				Error:   "authentication unavailable",
			})
			return
		}
		if employee == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
				Success: false,
				Error:   "invalid token",
			})
			return
		}

		c.Set(callerKey, employee)
		c.Next()
	}
}

// callerFrom extracts the authenticated employee placed by authMiddleware.
func callerFrom(c *gin.Context) *entity.Employee {
	v, ok := c.Get(callerKey)
	if !ok {
		return nil
	}
	employee, _ := v.(*entity.Employee)
	return employee
}

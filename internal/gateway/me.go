package gateway

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/set-night/coworker/internal/service"
)

const oidcTokenHeader = "x-amzn-oidc-accesstoken"

// handleMe reports the signed-in user from the load balancer's OIDC access
// token. The load balancer has already verified it, so only the payload is
// decoded here.
func (s *Server) handleMe(c *gin.Context) {
	if s.mock {
		u, err := service.MockUser()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, u)
		return
	}

	raw := c.GetHeader(oidcTokenHeader)
	if raw == "" {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "x-amzn-oidc-accesstoken header not found. Make sure you are behind ALB with OIDC authentication.",
		})
		return
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "decode access token: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, claims)
}

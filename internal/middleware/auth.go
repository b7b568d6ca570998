package middleware

import (
	"context"
	"net/http"
	"strings"

	"fintab-pos/internal/apperr"
	"fintab-pos/internal/auth"
	"fintab-pos/internal/models"

	"github.com/gin-gonic/gin"
)

// BusinessHeader selects the active business of a request.
const BusinessHeader = "X-Business-ID"

const (
	identityKey = "identity"
	actorKey    = "actor"
)

// AuthMiddleware checks if the user has a valid JWT token
func AuthMiddleware(v *auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Format: "Bearer <token>"
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required"})
			return
		}
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header must start with Bearer"})
			return
		}

		claims, err := v.ValidateToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set(identityKey, claims.Identity())
		c.Next()
	}
}

// ActorResolver turns an identity into an actor of one business.
type ActorResolver interface {
	ResolveActor(ctx context.Context, id models.Identity, businessID string) (models.Actor, error)
}

// ActiveBusiness resolves the caller's membership in the business named by
// the X-Business-ID header.
func ActiveBusiness(r ActorResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		businessID := c.GetHeader(BusinessHeader)
		if businessID == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "select a business first"})
			return
		}
		actor, err := r.ResolveActor(c.Request.Context(), Identity(c), businessID)
		if err != nil {
			c.AbortWithStatusJSON(apperr.HTTPStatus(err), gin.H{"error": apperr.Message(err)})
			return
		}
		c.Set(actorKey, actor)
		c.Next()
	}
}

// RequireCapability is a secondary guard that checks for specific permissions
func RequireCapability(capability string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !Actor(c).Can(capability) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "You do not have permission to access this resource"})
			return
		}
		c.Next()
	}
}

func RequireOwnerOrAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !Actor(c).IsOwnerOrAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "You do not have permission to access this resource"})
			return
		}
		c.Next()
	}
}

// Identity is the authenticated caller; zero if AuthMiddleware did not run.
func Identity(c *gin.Context) models.Identity {
	id, _ := c.Get(identityKey)
	v, _ := id.(models.Identity)
	return v
}

// Actor is the caller inside the active business; zero if ActiveBusiness did not run.
func Actor(c *gin.Context) models.Actor {
	a, _ := c.Get(actorKey)
	v, _ := a.(models.Actor)
	return v
}

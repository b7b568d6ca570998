package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fintab-pos/internal/apperr"
	"fintab-pos/internal/auth"
	"fintab-pos/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type resolverFunc func(ctx context.Context, id models.Identity, businessID string) (models.Actor, error)

func (f resolverFunc) ResolveActor(ctx context.Context, id models.Identity, businessID string) (models.Actor, error) {
	return f(ctx, id, businessID)
}

func router(v *auth.Verifier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestLogger(zap.NewNop()))
	resolver := resolverFunc(func(_ context.Context, id models.Identity, businessID string) (models.Actor, error) {
		if businessID != "b1" {
			return models.Actor{}, apperr.New(apperr.KindAuthorization, "you are not a member of this business")
		}
		return models.Actor{UserID: id.UserID, BusinessID: businessID, Role: models.RoleStaff, Capabilities: []string{models.CapCashSale}}, nil
	})
	api := r.Group("/api", AuthMiddleware(v), ActiveBusiness(resolver))
	api.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": Actor(c).UserID})
	})
	api.GET("/bank", RequireCapability(models.CapManageBank), func(c *gin.Context) { c.Status(http.StatusOK) })
	api.GET("/till", RequireCapability(models.CapCashSale), func(c *gin.Context) { c.Status(http.StatusOK) })
	api.GET("/admin", RequireOwnerOrAdmin(), func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestAuthChain(t *testing.T) {
	v := auth.NewVerifier("secret")
	token, err := v.GenerateToken(models.Identity{UserID: "u1"}, time.Hour)
	require.NoError(t, err)
	r := router(v)

	tests := []struct {
		name     string
		path     string
		header   string
		business string
		want     int
	}{
		{"no header", "/api/me", "", "b1", http.StatusUnauthorized},
		{"not bearer", "/api/me", "Token " + token, "b1", http.StatusUnauthorized},
		{"bad token", "/api/me", "Bearer nope", "b1", http.StatusUnauthorized},
		{"no business", "/api/me", "Bearer " + token, "", http.StatusBadRequest},
		{"not a member", "/api/me", "Bearer " + token, "b2", http.StatusForbidden},
		{"ok", "/api/me", "Bearer " + token, "b1", http.StatusOK},
		{"missing capability", "/api/bank", "Bearer " + token, "b1", http.StatusForbidden},
		{"has capability", "/api/till", "Bearer " + token, "b1", http.StatusOK},
		{"not admin", "/api/admin", "Bearer " + token, "b1", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.business != "" {
				req.Header.Set(BusinessHeader, tt.business)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kitchenware/storefront/internal/model"
	"github.com/kitchenware/storefront/internal/session"
)

const (
	userIDKey     = "userID"
	emailKey      = "email"
	userRoleKey   = "userRole"
	reconcilerKey = "reconciler"
)

type TokenVerifier interface {
	VerifyToken(token string) (sessionID string, userID uuid.UUID, err error)
}

type SessionGetter interface {
	Get(ctx context.Context, id string) (*session.Session, error)
}

// Auth admits a request only when its bearer token names a live session whose
// profile still exists. Each request gets its own reconciler.
func Auth(verifier TokenVerifier, sessions SessionGetter, newReconciler func() *session.Reconciler, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		sid, userID, err := verifier.VerifyToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		ctx := c.Request.Context()
		sess, err := sessions.Get(ctx, sid)
		if err != nil {
			log.Error("load session", "session_id", sid, "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}
		if sess == nil || sess.UserID != userID {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
			return
		}

		rec := newReconciler()
		st := rec.Restore(ctx, sess)
		if st.Status != session.StatusAuthenticated {
			if st.Notice != "" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": st.Notice})
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		c.Set(userIDKey, sess.UserID)
		c.Set(emailKey, sess.Email)
		c.Set(userRoleKey, st.Role)
		c.Set(reconcilerKey, rec)
		c.Next()
	}
}

func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetUserRole(c) != model.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin only"})
			return
		}
		c.Next()
	}
}

func GetUserID(c *gin.Context) uuid.UUID {
	id, _ := c.Get(userIDKey)
	uid, _ := id.(uuid.UUID)
	return uid
}

func GetEmail(c *gin.Context) string {
	return c.GetString(emailKey)
}

func GetUserRole(c *gin.Context) model.Role {
	role, _ := c.Get(userRoleKey)
	r, _ := role.(model.Role)
	return r
}

func GetReconciler(c *gin.Context) *session.Reconciler {
	rec, _ := c.Get(reconcilerKey)
	r, _ := rec.(*session.Reconciler)
	return r
}

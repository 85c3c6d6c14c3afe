package httpserver

import (
	"context"
	"log"
	"net/http"
	"strings"

	"frunk-store/internal/domain"
	usersvc "frunk-store/internal/service/user"

	"github.com/gin-gonic/gin"
)

type ctxKey string

const userCtxKey ctxKey = "user"

const sessionCookie = "session"

// userMiddleware resolves the session token, if any, and stores the user in
// the request context. Requests without a valid token continue anonymously.
func userMiddleware(svc UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := sessionToken(c)
		if token == "" {
			c.Next()
			return
		}
		u, err := svc.LookupByToken(c.Request.Context(), token)
		if err == nil && u != nil {
			c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), userCtxKey, u))
		}
		c.Next()
	}
}

func requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if currentUser(c) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		c.Next()
	}
}

func currentUser(c *gin.Context) *domain.User {
	u, _ := c.Request.Context().Value(userCtxKey).(*domain.User)
	return u
}

func sessionToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if v, err := c.Cookie(sessionCookie); err == nil {
		return v
	}
	return ""
}

func signupHandler(logger *log.Logger, svc UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req usersvc.Credentials
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		u, err := svc.Signup(c.Request.Context(), req)
		if err != nil {
			writeError(c, logger, "signup", err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"user": u})
	}
}

func loginHandler(logger *log.Logger, svc UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req usersvc.Credentials
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		u, token, err := svc.Login(c.Request.Context(), req)
		if err != nil {
			writeError(c, logger, "login", err)
			return
		}
		ttl := svc.SessionTTLSeconds()
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(sessionCookie, token, ttl, "/", "", c.Request.TLS != nil, true)
		c.JSON(http.StatusOK, gin.H{"user": u, "token": token, "expires_in": ttl})
	}
}

func logoutHandler(logger *log.Logger, svc UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := sessionToken(c); token != "" {
			if err := svc.Logout(c.Request.Context(), token); err != nil {
				writeError(c, logger, "logout", err)
				return
			}
		}
		c.SetCookie(sessionCookie, "", -1, "/", "", c.Request.TLS != nil, true)
		c.Status(http.StatusNoContent)
	}
}

func meHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"user": currentUser(c)})
}

func myOrdersHandler(logger *log.Logger, orders OrderLister) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := orders.ListByUser(c.Request.Context(), currentUser(c).ID)
		if err != nil {
			writeError(c, logger, "list orders", err)
			return
		}
		if list == nil {
			list = []domain.Order{}
		}
		c.JSON(http.StatusOK, gin.H{"orders": list})
	}
}

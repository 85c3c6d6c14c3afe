package httpserver

import (
	"errors"
	"fmt"
	"log"
	"time"

	"frunk-store/internal/ratelimit"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

// buildRouter wires routes for the API.
func buildRouter(logger *log.Logger, db *pgxpool.Pool, deps Deps) (*gin.Engine, error) {
	if deps.Catalog == nil || deps.CheckoutSvc == nil || deps.PaymentSvc == nil || deps.UserSvc == nil || deps.Orders == nil {
		return nil, errors.New("httpserver: missing dependencies")
	}
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	if err := router.SetTrustedProxies(deps.TrustedProxies); err != nil {
		return nil, fmt.Errorf("httpserver: trusted proxies: %w", err)
	}
	router.Use(gin.LoggerWithWriter(logger.Writer()), gin.Recovery())
	if len(deps.AllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     deps.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db, deps.Integrations))

	api := router.Group("/api")
	api.POST("/webhooks/stripe", webhookHandler(logger, deps.PaymentSvc))

	session := api.Group("", userMiddleware(deps.UserSvc))

	store := session.Group("/store")
	store.GET("/products", listProductsHandler(deps.Catalog))
	store.GET("/products/:slug", productHandler(deps.Catalog))
	store.POST("/checkout", ratelimit.Middleware(deps.CheckoutLimiter, logger), checkoutHandler(logger, deps.CheckoutSvc))
	store.GET("/orders/confirmation", confirmationHandler(logger, deps.PaymentSvc))

	auth := session.Group("/auth")
	auth.POST("/signup", signupHandler(logger, deps.UserSvc))
	auth.POST("/login", loginHandler(logger, deps.UserSvc))
	auth.POST("/logout", logoutHandler(logger, deps.UserSvc))

	me := session.Group("/me", requireUser())
	me.GET("", meHandler)
	me.GET("/orders", myOrdersHandler(logger, deps.Orders))

	return router, nil
}

package handler

import (
	"procure-pay/internal/adapter/http/middleware"
	redisStore "procure-pay/internal/adapter/storage/redis"
	"procure-pay/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// FeatureFlags controls which endpoint groups are live. Gated routes are
// always registered and answer FLAG_001 while their flag is off.
type FeatureFlags struct {
	PaymentsGateway bool // webhook ingestion and gateway-funded payments
	WalletBasic     bool // wallet creation and top-ups
}

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	ReconSvc       ports.ReconciliationService
	PaymentSvc     ports.PaymentService
	WalletSvc      ports.WalletService
	TokenSvc       ports.TokenService
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	Flags          FeatureFlags
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep — verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Rate limit rules
	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	gatewayGate := middleware.FeatureGate(deps.Flags.PaymentsGateway, "payments_gateway")
	walletGate := middleware.FeatureGate(deps.Flags.WalletBasic, "wallet_basic")

	// API v1 routes
	v1 := r.Group("/api/v1")

	// --- Gateway-facing routes (unauthenticated; the verify-first flow is
	// the trust boundary, not the caller's identity) ---
	webhookHandler := NewWebhookHandler(deps.ReconSvc)
	webhooks := v1.Group("/webhooks")
	{
		webhooks.POST("/payment-status", rl("webhooks"), gatewayGate, webhookHandler.PaymentStatus)
	}

	// --- JWT-authenticated routes (procurement ops API) ---
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)

	paymentHandler := NewPaymentHandler(deps.PaymentSvc)
	payments := v1.Group("/payments", jwtAuth)
	{
		payments.POST("", rl("payments"), paymentHandler.CreatePayment)
		payments.GET("/:id", rl("payments"), paymentHandler.GetPayment)
	}

	walletHandler := NewWalletHandler(deps.WalletSvc)
	wallets := v1.Group("/wallets", jwtAuth)
	{
		wallets.POST("", rl("wallets_write"), walletGate, walletHandler.CreateWallet)
		wallets.POST("/:id/topup", rl("wallets_write"), walletGate, walletHandler.Topup)
		wallets.GET("/:id/balance", rl("wallets_read"), walletHandler.GetBalance)
		wallets.GET("/:id/transactions", rl("wallets_read"), walletHandler.ListTransactions)
		wallets.GET("/:id/integrity", rl("wallets_read"), walletHandler.CheckIntegrity)
	}

	return r
}

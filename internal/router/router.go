package router

import (
	"fmt"
	"strings"

	"github.com/dealmint/internal/cache"
	"github.com/dealmint/internal/config"
	merchanthandlers "github.com/dealmint/internal/http/handlers/merchant"
	publichandlers "github.com/dealmint/internal/http/handlers/public"
	"github.com/dealmint/internal/logger"
	"github.com/dealmint/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	if logger.L == nil {
		logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	log := logger.Z()
	r := gin.New()

	// 初始化 Handler（公开/商户分组）
	publicHandler := publichandlers.New(c)
	merchantHandler := merchanthandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "dm"
	}
	redisClient := cache.Client()
	claimRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:claim", redisPrefix),
		WindowSeconds: cfg.Security.ClaimRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.ClaimRateLimit.MaxRequests,
	}
	redeemRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:redeem", redisPrefix),
		WindowSeconds: cfg.Security.RedeemRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.RedeemRateLimit.MaxRequests,
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	// API 路由组
	apiV1 := r.Group("/api/v1")
	{
		// 领取与核销
		apiV1.POST("/claims", RateLimitMiddleware(redisClient, claimRule, KeyByIPAndJSONField("claimant_id")), publicHandler.CreateClaim)
		apiV1.POST("/claims/tickets", RateLimitMiddleware(redisClient, claimRule, KeyByIPAndJSONField("claimant_id")), publicHandler.ReissueTicket)
		apiV1.GET("/claims", publicHandler.ListClaims)
		apiV1.POST("/redemptions", RateLimitMiddleware(redisClient, redeemRule, KeyByIP), publicHandler.Redeem)

		// 活动浏览
		apiV1.GET("/promotions", publicHandler.ListPromotions)
		apiV1.GET("/promotions/:id", publicHandler.GetPromotion)

		// 商户接口（需鉴权）
		merchant := apiV1.Group("/merchant")
		merchant.Use(MerchantJWTAuthMiddleware(c.MerchantAuthService))
		{
			merchant.POST("/promotions", merchantHandler.CreatePromotion)
			merchant.GET("/promotions", merchantHandler.ListPromotions)
			merchant.GET("/promotions/:id/redemptions", merchantHandler.ListRedemptions)
		}
	}

	if cfg.Metrics.Enabled && c.Metrics != nil {
		path := strings.TrimSpace(cfg.Metrics.Path)
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(c.Metrics.Handler()))
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}

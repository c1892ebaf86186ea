package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/dealmint/internal/config"
	"github.com/dealmint/internal/logger"
	"github.com/dealmint/internal/models"
	"github.com/dealmint/internal/service"
)

func main() {
	var (
		merchantID string
		assetRef   string
		supply     int
		discount   int64
	)
	flag.StringVar(&merchantID, "merchant", "demo-merchant", "商户标识")
	flag.StringVar(&assetRef, "asset", "", "资产模板引用，为空时使用 demo-asset")
	flag.IntVar(&supply, "supply", 100, "发行总量")
	flag.Int64Var(&discount, "discount", 20, "折扣百分比")
	flag.Parse()

	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	log := logger.S()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		log.Fatalw("seed_database_init_failed", "error", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		log.Fatalw("seed_database_migrate_failed", "error", err)
	}

	promotion, err := models.EnsureDemoPromotion(models.DemoPromotionOptions{
		MerchantID:  merchantID,
		TotalSupply: supply,
		Discount:    discount,
		AssetRef:    assetRef,
		TTL:         30 * 24 * time.Hour,
	})
	if err != nil {
		log.Fatalw("seed_demo_promotion_failed", "error", err)
	}

	token, expiresAt, err := service.NewMerchantAuthService(cfg.MerchantJWT).GenerateJWT(promotion.MerchantID)
	if err != nil {
		log.Fatalw("seed_merchant_token_failed", "error", err)
	}

	fmt.Printf("promotion_id: %s\n", promotion.ID)
	fmt.Printf("merchant_id:  %s\n", promotion.MerchantID)
	fmt.Printf("merchant_jwt: %s\n", token)
	fmt.Printf("expires_at:   %s\n", expiresAt.Format(time.RFC3339))
}

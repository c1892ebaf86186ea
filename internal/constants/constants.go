package constants

// 活动派生状态常量（读取时计算，不落库）
const (
	PromotionStatusActive  = "active"
	PromotionStatusSoldOut = "sold_out"
	PromotionStatusExpired = "expired"
)

// 资产发行状态常量
const (
	IssuanceStatusPending = "pending"
	IssuanceStatusIssued  = "issued"
	IssuanceStatusFailed  = "failed"
)

// 持有权校验驱动常量
const (
	OracleDriverEth    = "eth"
	OracleDriverSolana = "solana"
)

// 折扣范围（百分比）
const (
	DiscountMin = 1
	DiscountMax = 100
)

// 领域事件类型常量
const (
	EventCouponClaimed  = "coupon.claimed"
	EventCouponRedeemed = "coupon.redeemed"
)

// 请求上下文键
const (
	ContextKeyRequestID  = "request_id"
	ContextKeyMerchantID = "merchant_id"
)

// 队列与任务常量
const (
	QueueDefault       = "default"
	QueueCritical      = "critical"
	TaskPromotionIssue = "promotion:issue"
)

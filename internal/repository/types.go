package repository

// PromotionListFilter 查询活动列表的过滤条件
type PromotionListFilter struct {
	Page       int
	PageSize   int
	MerchantID string
	Tag        string
	Search     string
	OnlyIssued bool
}

// ClaimListFilter 查询领取记录的过滤条件
type ClaimListFilter struct {
	Page       int
	PageSize   int
	ClaimantID string
}

// RedemptionListFilter 查询核销记录的过滤条件
type RedemptionListFilter struct {
	Page        int
	PageSize    int
	PromotionID string
}

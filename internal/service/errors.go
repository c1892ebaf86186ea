package service

import "errors"

// 领取相关错误
var (
	ErrInvalidClaimRequest = errors.New("invalid claim request")
	ErrPromotionNotFound   = errors.New("promotion not found")
	ErrPromotionInactive   = errors.New("promotion inactive")
	ErrPromotionSoldOut    = errors.New("promotion sold out")
	ErrAlreadyClaimed      = errors.New("promotion already claimed")
	ErrClaimNotFound       = errors.New("claim not found")
	ErrNonceExhausted      = errors.New("redemption nonce attempts exhausted")
)

// 核销相关错误
var (
	ErrMalformedTicket         = errors.New("malformed ticket")
	ErrTicketExpired           = errors.New("ticket expired")
	ErrUnknownTicket           = errors.New("unknown ticket")
	ErrAlreadyRedeemed         = errors.New("ticket already redeemed")
	ErrVerificationUnavailable = errors.New("ownership verification unavailable")
	ErrOwnershipMismatch       = errors.New("ownership mismatch")
)

// 活动管理相关错误
var (
	ErrInvalidPromotion    = errors.New("invalid promotion")
	ErrIssuanceUnavailable = errors.New("asset issuance unavailable")
)

// outcomeLabel 将错误归类为指标标签
func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidClaimRequest):
		return "invalid_request"
	case errors.Is(err, ErrPromotionNotFound):
		return "not_found"
	case errors.Is(err, ErrPromotionInactive):
		return "inactive"
	case errors.Is(err, ErrPromotionSoldOut):
		return "sold_out"
	case errors.Is(err, ErrAlreadyClaimed):
		return "already_claimed"
	case errors.Is(err, ErrClaimNotFound):
		return "claim_not_found"
	case errors.Is(err, ErrMalformedTicket):
		return "malformed_ticket"
	case errors.Is(err, ErrTicketExpired):
		return "ticket_expired"
	case errors.Is(err, ErrUnknownTicket):
		return "unknown_ticket"
	case errors.Is(err, ErrAlreadyRedeemed):
		return "already_redeemed"
	case errors.Is(err, ErrVerificationUnavailable):
		return "verification_unavailable"
	case errors.Is(err, ErrOwnershipMismatch):
		return "ownership_mismatch"
	default:
		return "internal_error"
	}
}

package public

import (
	"github.com/dealmint/internal/http/handlers/shared"
	"github.com/dealmint/internal/http/response"
	"github.com/dealmint/internal/service"
)

var claimErrorRules = []shared.MappedError{
	{Target: service.ErrInvalidClaimRequest, Code: response.CodeBadRequest, Kind: shared.KindInvalidRequest},
	{Target: service.ErrPromotionNotFound, Code: response.CodeNotFound, Kind: shared.KindNotFound},
	{Target: service.ErrAlreadyClaimed, Code: response.CodeConflict, Kind: shared.KindAlreadyClaimed},
	{Target: service.ErrPromotionInactive, Code: response.CodeBadRequest, Kind: shared.KindInactive},
	{Target: service.ErrPromotionSoldOut, Code: response.CodeBadRequest, Kind: shared.KindSoldOut},
}

var reissueErrorRules = shared.ConcatMappedErrors(
	[]shared.MappedError{
		{Target: service.ErrClaimNotFound, Code: response.CodeNotFound, Kind: shared.KindClaimNotFound},
		{Target: service.ErrAlreadyRedeemed, Code: response.CodeConflict, Kind: shared.KindAlreadyRedeemed},
	},
	claimErrorRules,
)

var redemptionErrorRules = []shared.MappedError{
	{Target: service.ErrMalformedTicket, Code: response.CodeBadRequest, Kind: shared.KindMalformedTicket},
	{Target: service.ErrTicketExpired, Code: response.CodeBadRequest, Kind: shared.KindTicketExpired},
	{Target: service.ErrUnknownTicket, Code: response.CodeNotFound, Kind: shared.KindUnknownTicket},
	{Target: service.ErrAlreadyRedeemed, Code: response.CodeConflict, Kind: shared.KindAlreadyRedeemed},
	{Target: service.ErrOwnershipMismatch, Code: response.CodeForbidden, Kind: shared.KindOwnershipMismatch},
	{Target: service.ErrVerificationUnavailable, Code: response.CodeServiceUnavailable, Kind: shared.KindVerificationUnavailable},
}

var promotionReadErrorRules = []shared.MappedError{
	{Target: service.ErrPromotionNotFound, Code: response.CodeNotFound, Kind: shared.KindNotFound},
}

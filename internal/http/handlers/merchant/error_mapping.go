package merchant

import (
	"github.com/dealmint/internal/http/handlers/shared"
	"github.com/dealmint/internal/http/response"
	"github.com/dealmint/internal/service"
)

var promotionCreateErrorRules = []shared.MappedError{
	{Target: service.ErrIssuanceUnavailable, Code: response.CodeServiceUnavailable, Kind: shared.KindIssuanceUnavailable},
}

var ledgerErrorRules = []shared.MappedError{
	{Target: service.ErrPromotionNotFound, Code: response.CodeNotFound, Kind: shared.KindNotFound},
}

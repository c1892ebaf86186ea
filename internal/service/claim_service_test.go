package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dealmint/internal/constants"
	"github.com/dealmint/internal/models"
	"github.com/dealmint/internal/repository"
	"github.com/dealmint/internal/ticket"
)

func TestClaimIssuesDecodableTicket(t *testing.T) {
	f := setupServiceTest(t)
	promotion := f.createPromotion(t, 3)

	result, err := f.claims.Claim(context.Background(), promotion.ID, "wallet-1")
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	decoded, err := ticket.Decode(result.EncodedTicket)
	if err != nil {
		t.Fatalf("decode issued ticket failed: %v", err)
	}
	if decoded.PromotionID != promotion.ID || decoded.ClaimantID != "wallet-1" || decoded.AssetRef != promotion.AssetRefValue() {
		t.Fatalf("ticket bound to wrong identities: %+v", decoded)
	}
	if !decoded.ExpiresAt.Equal(f.clock.Now().Add(2 * time.Minute)) {
		t.Fatalf("unexpected expiry: %s", decoded.ExpiresAt)
	}
	if got := f.claimedCount(t, promotion.ID); got != 1 {
		t.Fatalf("expected claimed_count 1, got %d", got)
	}
	record, err := f.nonces.Get(context.Background(), decoded.AssetRef, decoded.NonceHex())
	if err != nil || record == nil {
		t.Fatalf("nonce record missing: %v", err)
	}
	if record.Consumed {
		t.Fatalf("fresh nonce should not be consumed")
	}
	if types := f.publisher.Types(); len(types) != 1 || types[0] != constants.EventCouponClaimed {
		t.Fatalf("unexpected events: %v", types)
	}
}

func TestClaimRejectsUnavailablePromotions(t *testing.T) {
	f := setupServiceTest(t)
	expired := f.createPromotion(t, 5, func(p *models.Promotion) {
		p.ExpiresAt = f.clock.Now().Add(-time.Second)
	})
	pending := f.createPromotion(t, 5, func(p *models.Promotion) {
		p.AssetRef = nil
		p.IssuanceStatus = constants.IssuanceStatusPending
	})
	soldOut := f.createPromotion(t, 1, func(p *models.Promotion) {
		p.ClaimedCount = 1
	})

	cases := []struct {
		name        string
		promotionID string
		claimantID  string
		want        error
	}{
		{name: "missing", promotionID: "does-not-exist", claimantID: "wallet-1", want: ErrPromotionNotFound},
		{name: "expired", promotionID: expired.ID, claimantID: "wallet-1", want: ErrPromotionInactive},
		{name: "not issued", promotionID: pending.ID, claimantID: "wallet-1", want: ErrPromotionInactive},
		{name: "sold out", promotionID: soldOut.ID, claimantID: "wallet-1", want: ErrPromotionSoldOut},
		{name: "blank claimant", promotionID: expired.ID, claimantID: "  ", want: ErrInvalidClaimRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.claims.Claim(context.Background(), tc.promotionID, tc.claimantID)
			if !errors.Is(err, tc.want) {
				t.Fatalf("want %v, got %v", tc.want, err)
			}
		})
	}
	if got := f.claimedCount(t, soldOut.ID); got != 1 {
		t.Fatalf("sold out counter must stay put, got %d", got)
	}
}

func TestClaimTwiceReleasesReservation(t *testing.T) {
	f := setupServiceTest(t)
	promotion := f.createPromotion(t, 5)

	if _, err := f.claims.Claim(context.Background(), promotion.ID, "wallet-1"); err != nil {
		t.Fatalf("first claim failed: %v", err)
	}
	_, err := f.claims.Claim(context.Background(), promotion.ID, "wallet-1")
	if !errors.Is(err, ErrAlreadyClaimed) {
		t.Fatalf("expected ErrAlreadyClaimed, got %v", err)
	}
	if got := f.claimedCount(t, promotion.ID); got != 1 {
		t.Fatalf("duplicate claim must not consume supply, got %d", got)
	}
}

func TestConcurrentClaimsNeverExceedSupply(t *testing.T) {
	f := setupServiceTest(t)
	const supply = 4
	const claimants = 12
	promotion := f.createPromotion(t, supply)

	var wg sync.WaitGroup
	var mu sync.Mutex
	outcomes := map[string]int{}
	for i := 0; i < claimants; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.claims.Claim(context.Background(), promotion.ID, fmt.Sprintf("wallet-%d", i))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				outcomes["ok"]++
			case errors.Is(err, ErrPromotionSoldOut):
				outcomes["sold_out"]++
			default:
				outcomes[err.Error()]++
			}
		}(i)
	}
	wg.Wait()

	if outcomes["ok"] != supply || outcomes["sold_out"] != claimants-supply {
		t.Fatalf("unexpected outcomes: %v", outcomes)
	}
	if got := f.claimedCount(t, promotion.ID); got != supply {
		t.Fatalf("expected claimed_count %d, got %d", supply, got)
	}
	var claims int64
	if err := f.db.Model(&models.Claim{}).Where("promotion_id = ?", promotion.ID).Count(&claims).Error; err != nil {
		t.Fatalf("count claims failed: %v", err)
	}
	if claims != supply {
		t.Fatalf("expected %d claims, got %d", supply, claims)
	}
}

func TestConcurrentClaimsSameClaimantYieldOneClaim(t *testing.T) {
	f := setupServiceTest(t)
	promotion := f.createPromotion(t, 10)

	var wg sync.WaitGroup
	var mu sync.Mutex
	successes, duplicates := 0, 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.claims.Claim(context.Background(), promotion.ID, "wallet-same")
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
			} else if errors.Is(err, ErrAlreadyClaimed) {
				duplicates++
			}
		}()
	}
	wg.Wait()

	if successes != 1 || duplicates != 7 {
		t.Fatalf("expected 1 success and 7 duplicates, got %d/%d", successes, duplicates)
	}
	if got := f.claimedCount(t, promotion.ID); got != 1 {
		t.Fatalf("expected claimed_count 1 after compensation, got %d", got)
	}
}

// collidingReader 前两次返回相同字节，迫使 nonce 冲突
type collidingReader struct {
	mu    sync.Mutex
	calls int
}

func (r *collidingReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	fill := byte(0xAB)
	if r.calls > 2 {
		fill = byte(r.calls)
	}
	for i := range p {
		p[i] = fill
	}
	return len(p), nil
}

func TestIssueTicketRetriesOnNonceCollision(t *testing.T) {
	f := setupServiceTest(t)
	promotion := f.createPromotion(t, 5)
	reader := &collidingReader{}
	claims := NewClaimService(ClaimServiceOptions{
		PromotionRepo: f.promotions,
		ClaimRepo:     repository.NewClaimRepository(f.db),
		NonceRepo:     f.nonces,
		Codec:         ticket.NewCodec(ticket.WithRandom(reader), ticket.WithClock(f.clock.Now)),
	})

	first, err := claims.Claim(context.Background(), promotion.ID, "wallet-1")
	if err != nil {
		t.Fatalf("first claim failed: %v", err)
	}
	second, err := claims.Reissue(context.Background(), promotion.ID, "wallet-1")
	if err != nil {
		t.Fatalf("reissue should retry past collision: %v", err)
	}
	if first.EncodedTicket == second.EncodedTicket {
		t.Fatalf("reissued ticket must carry a new nonce")
	}
	if reader.calls != 3 {
		t.Fatalf("expected 3 random reads, got %d", reader.calls)
	}
}

func TestReissueRequiresExistingClaim(t *testing.T) {
	f := setupServiceTest(t)
	promotion := f.createPromotion(t, 5)

	if _, err := f.claims.Reissue(context.Background(), promotion.ID, "wallet-1"); !errors.Is(err, ErrClaimNotFound) {
		t.Fatalf("expected ErrClaimNotFound, got %v", err)
	}
	if _, err := f.claims.Claim(context.Background(), promotion.ID, "wallet-1"); err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if _, err := f.claims.Reissue(context.Background(), promotion.ID, "wallet-1"); err != nil {
		t.Fatalf("reissue failed: %v", err)
	}

	f.clock.Advance(2 * time.Hour)
	if _, err := f.claims.Reissue(context.Background(), promotion.ID, "wallet-1"); !errors.Is(err, ErrPromotionInactive) {
		t.Fatalf("expected ErrPromotionInactive after expiry, got %v", err)
	}
	if got := f.claimedCount(t, promotion.ID); got != 1 {
		t.Fatalf("reissue must not touch supply, got %d", got)
	}
}

func TestListClaimsByClaimant(t *testing.T) {
	f := setupServiceTest(t)
	first := f.createPromotion(t, 5)
	second := f.createPromotion(t, 5)
	for _, id := range []string{first.ID, second.ID} {
		if _, err := f.claims.Claim(context.Background(), id, "wallet-9"); err != nil {
			t.Fatalf("claim failed: %v", err)
		}
	}

	items, total, err := f.claims.ListClaims(context.Background(), "wallet-9", 1, 20)
	if err != nil {
		t.Fatalf("list claims failed: %v", err)
	}
	if total != 2 || len(items) != 2 {
		t.Fatalf("expected 2 claims, got total=%d len=%d", total, len(items))
	}
	if _, _, err := f.claims.ListClaims(context.Background(), " ", 1, 20); !errors.Is(err, ErrInvalidClaimRequest) {
		t.Fatalf("expected ErrInvalidClaimRequest, got %v", err)
	}
}

func TestIssuedNonceRecordsIssueTime(t *testing.T) {
	f := setupServiceTest(t)
	promotion := f.createPromotion(t, 5)
	issuedAt := f.clock.Now().Add(678901 * time.Nanosecond)
	claims := NewClaimService(ClaimServiceOptions{
		PromotionRepo: f.promotions,
		ClaimRepo:     repository.NewClaimRepository(f.db),
		NonceRepo:     f.nonces,
		Codec:         ticket.NewCodec(ticket.WithClock(func() time.Time { return issuedAt })),
		TicketTTL:     2 * time.Minute,
	})

	result, err := claims.Claim(context.Background(), promotion.ID, "wallet-1")
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	decoded, err := ticket.Decode(result.EncodedTicket)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	record, err := f.nonces.Get(context.Background(), decoded.AssetRef, decoded.NonceHex())
	if err != nil || record == nil {
		t.Fatalf("nonce record missing: %v", err)
	}
	if !record.IssuedAt.Equal(issuedAt) {
		t.Fatalf("issued_at should be the clock time %s, got %s", issuedAt, record.IssuedAt)
	}
	if record.ExpiresAt.After(issuedAt.Add(2 * time.Minute)) {
		t.Fatalf("expiry %s exceeds issue time plus ttl", record.ExpiresAt)
	}
}

func TestReissueRefusedAfterRedemption(t *testing.T) {
	f := setupServiceTest(t)
	promotion := f.createPromotion(t, 5)
	first, err := f.claims.Claim(context.Background(), promotion.ID, "wallet-1")
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if _, err := f.redeemer.Redeem(context.Background(), first.EncodedTicket); err != nil {
		t.Fatalf("redeem failed: %v", err)
	}

	if _, err := f.claims.Reissue(context.Background(), promotion.ID, "wallet-1"); !errors.Is(err, ErrAlreadyRedeemed) {
		t.Fatalf("expected ErrAlreadyRedeemed, got %v", err)
	}
	var count int64
	if err := f.db.Model(&models.RedemptionNonce{}).Where("promotion_id = ?", promotion.ID).Count(&count).Error; err != nil {
		t.Fatalf("count nonces failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("refused reissue must not store a nonce, got %d", count)
	}
}

func TestReissueRefusedAfterOwnershipMismatch(t *testing.T) {
	f := setupServiceTest(t)
	promotion := f.createPromotion(t, 5)
	first, err := f.claims.Claim(context.Background(), promotion.ID, "wallet-1")
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	f.oracle.Set(false, nil)
	if _, err := f.redeemer.Redeem(context.Background(), first.EncodedTicket); !errors.Is(err, ErrOwnershipMismatch) {
		t.Fatalf("expected ErrOwnershipMismatch, got %v", err)
	}

	f.oracle.Set(true, nil)
	if _, err := f.claims.Reissue(context.Background(), promotion.ID, "wallet-1"); !errors.Is(err, ErrAlreadyRedeemed) {
		t.Fatalf("expected ErrAlreadyRedeemed after terminal mismatch, got %v", err)
	}
}

func TestReissueAllowedAfterVerificationRollback(t *testing.T) {
	f := setupServiceTest(t)
	promotion := f.createPromotion(t, 5)
	first, err := f.claims.Claim(context.Background(), promotion.ID, "wallet-1")
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	f.oracle.Set(false, errors.New("rpc down"))
	if _, err := f.redeemer.Redeem(context.Background(), first.EncodedTicket); !errors.Is(err, ErrVerificationUnavailable) {
		t.Fatalf("expected ErrVerificationUnavailable, got %v", err)
	}

	f.oracle.Set(true, nil)
	second, err := f.claims.Reissue(context.Background(), promotion.ID, "wallet-1")
	if err != nil {
		t.Fatalf("reissue after rollback should succeed: %v", err)
	}
	if _, err := f.redeemer.Redeem(context.Background(), second.EncodedTicket); err != nil {
		t.Fatalf("redeem of reissued ticket failed: %v", err)
	}
}

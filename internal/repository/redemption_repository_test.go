package repository

import (
	"context"
	"testing"

	"github.com/dealmint/internal/models"
)

func TestRecordRedemptionIsUniquePerNonce(t *testing.T) {
	db := setupRepositoryTest(t)
	repo := NewRedemptionRepository(db)
	ctx := context.Background()

	first := &models.Redemption{PromotionID: "p-1", ClaimantID: "w-1", AssetRef: "a-1", Nonce: "n-1"}
	ok, err := repo.Record(ctx, first)
	if err != nil || !ok {
		t.Fatalf("record failed: ok=%v err=%v", ok, err)
	}
	ok, err = repo.Record(ctx, &models.Redemption{PromotionID: "p-1", ClaimantID: "w-1", AssetRef: "a-1", Nonce: "n-1"})
	if err != nil {
		t.Fatalf("duplicate record should not error: %v", err)
	}
	if ok {
		t.Fatalf("duplicate record should not insert")
	}

	got, err := repo.GetByNonce(ctx, "n-1")
	if err != nil || got == nil || got.ID != first.ID {
		t.Fatalf("get by nonce failed: %+v %v", got, err)
	}

	rows, total, err := repo.List(ctx, RedemptionListFilter{PromotionID: "p-1", Page: 1, PageSize: 20})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 1 || len(rows) != 1 {
		t.Fatalf("unexpected list: total=%d len=%d", total, len(rows))
	}
}

func TestRecordRedemptionIsUniquePerClaim(t *testing.T) {
	db := setupRepositoryTest(t)
	repo := NewRedemptionRepository(db)
	ctx := context.Background()

	ok, err := repo.Record(ctx, &models.Redemption{PromotionID: "p-1", ClaimantID: "w-1", AssetRef: "a-1", Nonce: "n-1"})
	if err != nil || !ok {
		t.Fatalf("record failed: ok=%v err=%v", ok, err)
	}
	ok, err = repo.Record(ctx, &models.Redemption{PromotionID: "p-1", ClaimantID: "w-1", AssetRef: "a-1", Nonce: "n-2"})
	if err != nil {
		t.Fatalf("second redemption of same claim should not error: %v", err)
	}
	if ok {
		t.Fatalf("second redemption of same claim should not insert")
	}
	ok, err = repo.Record(ctx, &models.Redemption{PromotionID: "p-1", ClaimantID: "w-2", AssetRef: "a-1", Nonce: "n-3"})
	if err != nil || !ok {
		t.Fatalf("other claimant should record: ok=%v err=%v", ok, err)
	}
}

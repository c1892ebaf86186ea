package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dealmint/internal/constants"
	"github.com/dealmint/internal/events"
	"github.com/dealmint/internal/issuance"
	"github.com/dealmint/internal/models"
	"github.com/dealmint/internal/oracle"
	"github.com/dealmint/internal/repository"
	"github.com/dealmint/internal/ticket"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Now().UTC().Truncate(time.Millisecond)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, 0, len(p.events))
	for _, event := range p.events {
		types = append(types, event.Type)
	}
	return types
}

// switchableOracle 返回当前设定的校验结果
type switchableOracle struct {
	mu    sync.Mutex
	owned bool
	err   error
	calls atomic.Int32
}

func (o *switchableOracle) Set(owned bool, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.owned = owned
	o.err = err
}

func (o *switchableOracle) VerifyOwnership(context.Context, string, string) (bool, error) {
	o.calls.Add(1)
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.owned, o.err
}

type stubIssuer struct {
	result *issuance.Result
	err    error
	calls  atomic.Int32
}

func (s *stubIssuer) Issue(_ context.Context, _ issuance.Request) (*issuance.Result, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

type serviceFixture struct {
	db          *gorm.DB
	clock       *testClock
	oracle      *switchableOracle
	publisher   *recordingPublisher
	promotions  repository.PromotionRepository
	nonces      repository.RedemptionNonceRepository
	redemptions repository.RedemptionRepository
	claims      *ClaimService
	redeemer    *RedemptionService
}

func setupServiceTest(t *testing.T) *serviceFixture {
	t.Helper()
	dsn := fmt.Sprintf("file:service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := models.MigrateDB(db); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	models.DB = db

	clock := newTestClock()
	fakeOracle := &switchableOracle{owned: true}
	publisher := &recordingPublisher{}
	promotionRepo := repository.NewPromotionRepository(db)
	nonceRepo := repository.NewRedemptionNonceRepository(db)
	redemptionRepo := repository.NewRedemptionRepository(db)

	return &serviceFixture{
		db:          db,
		clock:       clock,
		oracle:      fakeOracle,
		publisher:   publisher,
		promotions:  promotionRepo,
		nonces:      nonceRepo,
		redemptions: redemptionRepo,
		claims: NewClaimService(ClaimServiceOptions{
			PromotionRepo: promotionRepo,
			ClaimRepo:     repository.NewClaimRepository(db),
			NonceRepo:     nonceRepo,
			Codec:         ticket.NewCodec(ticket.WithClock(clock.Now)),
			TicketTTL:     2 * time.Minute,
			Publisher:     publisher,
		}),
		redeemer: NewRedemptionService(RedemptionServiceOptions{
			PromotionRepo:  promotionRepo,
			NonceRepo:      nonceRepo,
			RedemptionRepo: redemptionRepo,
			Oracle:         oracle.Oracle(fakeOracle),
			Publisher:      publisher,
			Now:            clock.Now,
		}),
	}
}

func (f *serviceFixture) createPromotion(t *testing.T, supply int, mutate ...func(*models.Promotion)) *models.Promotion {
	t.Helper()
	assetRef := fmt.Sprintf("asset-%d", time.Now().UnixNano())
	promotion := &models.Promotion{
		MerchantID:     "merchant-1",
		Title:          "Coffee",
		Discount:       models.NewPercentFromInt(15),
		TotalSupply:    supply,
		ExpiresAt:      f.clock.Now().Add(time.Hour),
		AssetRef:       &assetRef,
		IssuanceStatus: constants.IssuanceStatusIssued,
	}
	for _, fn := range mutate {
		fn(promotion)
	}
	if err := f.db.Create(promotion).Error; err != nil {
		t.Fatalf("create promotion failed: %v", err)
	}
	return promotion
}

func (f *serviceFixture) claimedCount(t *testing.T, id string) int {
	t.Helper()
	promotion, err := f.promotions.GetByID(context.Background(), id)
	if err != nil || promotion == nil {
		t.Fatalf("load promotion failed: %v", err)
	}
	return promotion.ClaimedCount
}

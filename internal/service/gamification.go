package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"township-pos-api/internal/cache"
	"township-pos-api/internal/model"
	"township-pos-api/internal/repository"
	"township-pos-api/pkg/apierror"
)

const (
	analyticsCacheKey = "sales_analytics"
	analyticsWindow   = 1000
)

// GamificationService derives levels, badges and missions from sales
// behaviour. Aggregates are cached; the store stays the source of truth.
type GamificationService struct {
	store    repository.Store
	cache    cache.Cache
	cacheTTL time.Duration
}

// NewGamificationService creates a gamification service. cache may be
// nil to disable caching.
func NewGamificationService(store repository.Store, c cache.Cache, ttl time.Duration) *GamificationService {
	if ttl == 0 {
		ttl = time.Minute
	}
	return &GamificationService{
		store:    store,
		cache:    c,
		cacheTTL: ttl,
	}
}

// Summary returns progress, badges and missions.
func (s *GamificationService) Summary(ctx context.Context) (*model.GamificationSummary, error) {
	cs, err := s.store.GetCreditScore(ctx)
	if err != nil {
		log.Printf("[GamificationService] Summary failed: %v", err)
		return nil, apierror.DatabaseError("")
	}

	analytics, err := s.Analytics(ctx)
	if err != nil {
		return nil, err
	}

	return &model.GamificationSummary{
		Progress: ComputeProgress(cs),
		Badges:   ComputeBadges(cs, analytics),
		Missions: ComputeMissions(analytics),
	}, nil
}

// Analytics returns the aggregates missions and badges are computed
// from, served from cache when fresh.
func (s *GamificationService) Analytics(ctx context.Context) (*model.SalesAnalytics, error) {
	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, analyticsCacheKey); err == nil {
			var cached model.SalesAnalytics
			if err := json.Unmarshal(raw, &cached); err == nil {
				return &cached, nil
			}
		}
	}

	sales, err := s.store.GetSalesHistory(ctx, analyticsWindow)
	if err != nil {
		log.Printf("[GamificationService] Analytics failed: %v", err)
		return nil, apierror.DatabaseError("")
	}

	analytics := computeAnalytics(sales, time.Now())

	if s.cache != nil {
		if raw, err := json.Marshal(analytics); err == nil {
			if err := s.cache.Set(ctx, analyticsCacheKey, raw, s.cacheTTL); err != nil {
				log.Printf("[GamificationService] Cache write failed: %v", err)
			}
		}
	}

	return analytics, nil
}

// InvalidateAnalytics drops the cached aggregates (after a sale).
func (s *GamificationService) InvalidateAnalytics(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, analyticsCacheKey); err != nil {
		log.Printf("[GamificationService] Cache invalidation failed: %v", err)
	}
}

// computeAnalytics folds the recent sales into the mission aggregates.
func computeAnalytics(sales []model.SaleRecord, now time.Time) *model.SalesAnalytics {
	a := &model.SalesAnalytics{}

	year, month, day := now.Date()
	dayStart := time.Date(year, month, day, 0, 0, 0, 0, now.Location())
	weekStart := now.AddDate(0, 0, -7)

	digital := 0
	for _, sale := range sales {
		if sale.PaymentMethod != model.PaymentCash {
			digital++
		}
		if !sale.Timestamp.Before(dayStart) {
			a.TodaysSales++
			if sale.PaymentMethod != model.PaymentCash {
				a.TodaysDigitalSales++
			}
		}
		if sale.Timestamp.After(weekStart) {
			a.WeekSalesTotal += sale.Total
			a.WeekTransactionCount++
		}
	}
	if len(sales) > 0 {
		a.DigitalAdoption = float64(digital) / float64(len(sales)) * 100
	}
	return a
}

// ComputeProgress derives XP and level from the credit aggregates:
// XP = transactions*10 + totalSales/5, one level per 100 XP.
func ComputeProgress(cs *model.CreditScore) model.UserProgress {
	xp := cs.TransactionCount*10 + int(cs.TotalSales/5)
	return model.UserProgress{
		Level:       xp/100 + 1,
		XP:          xp,
		NextLevelXP: 100 - (xp % 100),
	}
}

// ComputeBadges returns every badge currently earned.
func ComputeBadges(cs *model.CreditScore, a *model.SalesAnalytics) []model.Badge {
	var badges []model.Badge

	if cs.TransactionCount >= 10 {
		badges = append(badges, model.Badge{
			ID: "first_sales", Name: "First Steps", Icon: "🏪",
			Description: "10 transactions completed",
		})
	}
	if cs.TransactionCount >= 50 {
		badges = append(badges, model.Badge{
			ID: "busy_shop", Name: "Busy Shop", Icon: "🔥",
			Description: "50 transactions completed",
		})
	}
	if cs.Score >= 60 {
		badges = append(badges, model.Badge{
			ID: "good_credit", Name: "Credit Builder", Icon: "⭐",
			Description: "Good credit score achieved",
		})
	}
	if cs.Score >= 80 {
		badges = append(badges, model.Badge{
			ID: "excellent_credit", Name: "Credit Master", Icon: "👑",
			Description: "Excellent credit score achieved",
		})
	}
	if a.DigitalAdoption >= 30 {
		badges = append(badges, model.Badge{
			ID: "digital_adopter", Name: "Digital Pioneer", Icon: "📱",
			Description: "30% digital payments",
		})
	}
	if a.WeekTransactionCount >= 7 {
		badges = append(badges, model.Badge{
			ID: "consistent", Name: "Streak Master", Icon: "🔥",
			Description: "7 days of consistent sales",
		})
	}

	return badges
}

// ComputeMissions returns the active missions with progress.
func ComputeMissions(a *model.SalesAnalytics) []model.Mission {
	daily := func(progress, target float64) float64 {
		if progress > target {
			return target
		}
		return progress
	}

	return []model.Mission{
		{
			ID:          "daily_sales",
			Title:       "Daily Hustle",
			Description: "Complete 5 transactions today",
			Progress:    daily(float64(a.TodaysSales), 5),
			Target:      5,
			Reward:      "50 XP",
			Type:        "daily",
			Completed:   a.TodaysSales >= 5,
		},
		{
			ID:          "digital_payment",
			Title:       "Go Digital",
			Description: "Accept 3 mobile money payments",
			Progress:    daily(float64(a.TodaysDigitalSales), 3),
			Target:      3,
			Reward:      "30 XP + Digital Badge",
			Type:        "daily",
			Completed:   a.TodaysDigitalSales >= 3,
		},
		{
			ID:          "weekly_volume",
			Title:       "Weekly Target",
			Description: "Reach R500 in sales this week",
			Progress:    daily(a.WeekSalesTotal, 500),
			Target:      500,
			Reward:      "100 XP",
			Type:        "weekly",
			Completed:   a.WeekSalesTotal >= 500,
		},
	}
}

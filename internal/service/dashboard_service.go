package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

type dashboardAttendanceRepository interface {
	CountBetween(ctx context.Context, from, to time.Time) (int, error)
}

type dashboardStudentRepository interface {
	CountActive(ctx context.Context) (int, error)
}

type delinquencyProvider interface {
	Delinquency(ctx context.Context) (*DelinquencySummary, error)
}

type readinessProvider interface {
	ReadyStudents(ctx context.Context) ([]StudentReadiness, error)
}

const dashboardCacheKey = "dashboard:summary"

// DashboardService composes the front-desk overview payload.
type DashboardService struct {
	attendance dashboardAttendanceRepository
	students   dashboardStudentRepository
	payments   delinquencyProvider
	readiness  readinessProvider
	cache      *CacheService
	cacheTTL   time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

// NewDashboardService constructs the dashboard service.
func NewDashboardService(
	attendance dashboardAttendanceRepository,
	students dashboardStudentRepository,
	payments delinquencyProvider,
	readiness readinessProvider,
	cache *CacheService,
	cacheTTL time.Duration,
	logger *zap.Logger,
) *DashboardService {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		attendance: attendance,
		students:   students,
		payments:   payments,
		readiness:  readiness,
		cache:      cache,
		cacheTTL:   cacheTTL,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// DashboardSummary is the academy overview shown at the front desk.
type DashboardSummary struct {
	GeneratedAt       time.Time           `json:"generated_at"`
	ActiveStudents    int                 `json:"active_students"`
	CheckinsToday     int                 `json:"checkins_today"`
	ReadyForPromotion int                 `json:"ready_for_promotion"`
	Delinquency       *DelinquencySummary `json:"delinquency"`
}

// Summary returns the overview, served from cache when fresh. The second
// return value reports whether the cache was used.
func (s *DashboardService) Summary(ctx context.Context) (*DashboardSummary, bool, error) {
	var cached DashboardSummary
	if hit, err := s.cache.Get(ctx, dashboardCacheKey, &cached); err == nil && hit {
		return &cached, true, nil
	}

	now := s.now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	active, err := s.students.CountActive(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("count active students: %w", err)
	}

	checkins, err := s.attendance.CountBetween(ctx, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		return nil, false, fmt.Errorf("count today's check-ins: %w", err)
	}

	delinquency, err := s.payments.Delinquency(ctx)
	if err != nil {
		return nil, false, err
	}

	ready, err := s.readiness.ReadyStudents(ctx)
	if err != nil {
		return nil, false, err
	}
	readyCount := 0
	for _, r := range ready {
		if r.Progress.ReadyForDegree {
			readyCount++
		}
	}

	summary := &DashboardSummary{
		GeneratedAt:       now,
		ActiveStudents:    active,
		CheckinsToday:     checkins,
		ReadyForPromotion: readyCount,
		Delinquency:       delinquency,
	}

	if err := s.cache.Set(ctx, dashboardCacheKey, summary, s.cacheTTL); err != nil {
		s.logger.Warn("dashboard cache set failed", zap.Error(err))
	}
	return summary, false, nil
}

// Invalidate drops the cached overview, called after check-ins and
// awards mutate the underlying counts.
func (s *DashboardService) Invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, dashboardCacheKey); err != nil {
		s.logger.Warn("dashboard cache invalidate failed", zap.Error(err))
	}
}

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// StatsWindow bounds a statistics query. Zero values fall back to the
// trailing default window.
type StatsWindow struct {
	From *time.Time
	To   *time.Time
	Day  *time.Time
}

// TechnicianStats is one aggregated row per active support technician.
type TechnicianStats struct {
	TechnicianID  int64    `json:"technician_id"`
	Name          string   `json:"name"`
	Initials      string   `json:"initials"`
	OpenCount     int64    `json:"open_count"`
	ClosedCount   int64    `json:"closed_count"`
	AvgMinutes    *float64 `json:"avg_minutes,omitempty"`
	AvgResolution string   `json:"avg_resolution"`
}

// StatsReport is the full aggregator response.
type StatsReport struct {
	From        time.Time         `json:"from"`
	To          time.Time         `json:"to"`
	Technicians []TechnicianStats `json:"technicians"`
}

// StatsService aggregates per-technician workload and resolution statistics,
// with a short-lived cache in front of the aggregation queries.
type StatsService struct {
	stats   repository.StatsRepository
	users   repository.UserRepository
	cache   repository.CacheRepository
	scope   *ScopeResolver
	catalog StatusLookup
	cfg     config.StatsConfig
	logger  *zap.Logger
	now     func() time.Time
}

func NewStatsService(
	stats repository.StatsRepository,
	users repository.UserRepository,
	cache repository.CacheRepository,
	scope *ScopeResolver,
	catalog StatusLookup,
	cfg config.StatsConfig,
	logger *zap.Logger,
) *StatsService {
	return &StatsService{
		stats:   stats,
		users:   users,
		cache:   cache,
		scope:   scope,
		catalog: catalog,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

// TechnicianStatistics aggregates open/closed counts and average resolution
// time for every active support technician in the window. Only elevated
// roles may call it.
func (s *StatsService) TechnicianStatistics(ctx context.Context, actor *domain.User, window StatsWindow) (*StatsReport, error) {
	if s.scope.RoleScope(actor.RoleName) != ScopeElevated {
		return nil, apperrors.NewUnauthorized("technician statistics require an elevated role")
	}

	from, to, err := s.resolveWindow(window)
	if err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("stats:technicians:%d:%d", from.Unix(), to.Unix())
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey); err == nil && cached != "" {
			var report StatsReport
			if err := json.Unmarshal([]byte(cached), &report); err == nil {
				return &report, nil
			}
		}
	}

	technicians, err := s.users.ListActiveByRoleNames(ctx, s.scope.SupportRoles())
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	openIDs := s.catalog.IDsByClass(domain.OpenClasses()...)
	closedIDs := s.catalog.IDsByClass(domain.StatusClassClosed)
	assignedIDs := s.catalog.IDsByClass(domain.StatusClassAssigned)

	report := &StatsReport{From: from, To: to, Technicians: make([]TechnicianStats, 0, len(technicians))}
	for _, tech := range technicians {
		row := TechnicianStats{
			TechnicianID: tech.ID,
			Name:         tech.FullName(),
			Initials:     tech.Initials(),
		}
		if row.OpenCount, err = s.stats.CountAssignedByStatus(ctx, tech.ID, openIDs, from, to); err != nil {
			return nil, apperrors.MapError(err)
		}
		if row.ClosedCount, err = s.stats.CountAssignedByStatus(ctx, tech.ID, closedIDs, from, to); err != nil {
			return nil, apperrors.MapError(err)
		}
		avg, err := s.stats.AvgResolutionMinutes(ctx, tech.ID, assignedIDs, closedIDs, from, to)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		row.AvgMinutes = avg
		row.AvgResolution = FormatResolution(avg)
		report.Technicians = append(report.Technicians, row)
	}

	if s.cache != nil {
		if encoded, err := json.Marshal(report); err == nil {
			if err := s.cache.Set(ctx, cacheKey, string(encoded), s.cfg.CacheTTL()); err != nil {
				s.logger.Warn("stats cache write failed", zap.Error(err))
			}
		}
	}
	return report, nil
}

// resolveWindow normalizes the requested window: explicit range, single day,
// or the trailing default window.
func (s *StatsService) resolveWindow(window StatsWindow) (time.Time, time.Time, error) {
	now := s.now().UTC()

	if window.Day != nil {
		day := window.Day.UTC().Truncate(24 * time.Hour)
		return day, day.Add(24*time.Hour - time.Nanosecond), nil
	}
	if window.From != nil || window.To != nil {
		if window.From == nil || window.To == nil {
			return time.Time{}, time.Time{}, apperrors.NewValidationError("both from and to are required for a range", nil)
		}
		if window.To.Before(*window.From) {
			return time.Time{}, time.Time{}, apperrors.NewValidationError("to must not precede from", nil)
		}
		return window.From.UTC(), window.To.UTC(), nil
	}
	return now.AddDate(0, 0, -s.cfg.DefaultWindowDays), now, nil
}

// FormatResolution renders a duration in minutes as "Xd Xh Xm" with zero
// units dropped ("2h", "2d 5m"). Durations under a minute render as "<1m",
// a missing duration as "-".
func FormatResolution(minutes *float64) string {
	if minutes == nil {
		return "-"
	}
	total := int64(math.Round(*minutes))
	if total < 1 {
		return "<1m"
	}

	days := total / (24 * 60)
	hours := (total % (24 * 60)) / 60
	mins := total % 60

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if mins > 0 {
		parts = append(parts, fmt.Sprintf("%dm", mins))
	}
	return strings.Join(parts, " ")
}

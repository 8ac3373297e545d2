package retention

import (
	"context"
	"log/slog"
	"time"

	"vigil/internal/store"
)

type Service struct {
	store  *store.Store
	maxAge time.Duration
	log    *slog.Logger
	now    func() time.Time
}

func NewService(st *store.Store, maxAge time.Duration, logger *slog.Logger) *Service {
	if maxAge <= 0 {
		maxAge = 14 * 24 * time.Hour
	}
	return &Service{store: st, maxAge: maxAge, log: logger, now: time.Now}
}

func (s *Service) Run(ctx context.Context) {
	cutoff := s.now().UTC().Add(-s.maxAge)
	metrics, alerts, err := s.store.PruneBefore(ctx, cutoff)
	if err != nil {
		s.log.Error("retention sweep failed", "err", err)
		return
	}
	s.log.Info("retention sweep completed",
		"cutoff", cutoff, "metrics_deleted", metrics, "alerts_deleted", alerts)
}

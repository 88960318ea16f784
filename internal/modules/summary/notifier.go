package summary

import (
	"context"

	"go.uber.org/zap"
)

// EntriesChanged reconciles the cache for every touched day and eagerly
// refreshes the ones that still have a summary to keep. It satisfies the
// entry store's Notifier interface.
func (s *Service) EntriesChanged(ctx context.Context, ownerID string, dates ...string) {
	for _, date := range dates {
		count, err := s.Invalidate(ctx, ownerID, date)
		if err != nil {
			s.logger.Warn("summary invalidation failed",
				zap.String("owner", ownerID),
				zap.String("date", date),
				zap.Error(err))
			continue
		}
		if count >= 2 {
			s.scheduleRegeneration(ownerID, date)
		}
	}
}

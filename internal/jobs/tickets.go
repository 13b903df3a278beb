package jobs

import (
	"context"
	"log/slog"

	"github.com/iliyamo/resort-reservation/internal/service"
)

// Sweeper repairs tickets that failed to issue or to store their document.
type Sweeper interface {
	Sweep(ctx context.Context, limit int) (service.SweepResult, error)
}

// TicketSweep returns the retry job.
func TicketSweep(s Sweeper, limit int, logger *slog.Logger) Job {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context) error {
		res, err := s.Sweep(ctx, limit)
		if err != nil {
			return err
		}
		if res.Issued+res.Documents+res.Failed > 0 {
			logger.Info("ticket sweep", "issued", res.Issued, "documents", res.Documents, "failed", res.Failed)
		}
		return nil
	}
}

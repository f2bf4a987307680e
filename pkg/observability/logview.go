package observability

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aretw0/spectate"
	"github.com/aretw0/spectate/pkg/domain"
)

// LogView returns a view logging each batch at the given level.
func LogView(logger *slog.Logger, level slog.Level) spectate.ViewFunc {
	return func(origin spectate.Observable, batch domain.Batch) error {
		logger.Log(context.Background(), level, "batch delivered",
			"model", TypeLabel(origin),
			"size", batch.Len(),
			"events", batch,
		)
		return nil
	}
}

// Fanout runs views in order as a single view. Every view runs; their
// failures are joined.
func Fanout(views ...spectate.ViewFunc) spectate.ViewFunc {
	return func(origin spectate.Observable, batch domain.Batch) error {
		var errs []error
		for _, v := range views {
			if err := v(origin, batch); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
}

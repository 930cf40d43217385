package services

import (
	"context"
	"sort"
	"strings"
	"sync"

	apperrors "backoffice-service/common/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const bulkDeleteConcurrency = 8

// fanOutDelete runs del for every id concurrently. The deletes are
// independent: one failure neither cancels nor rolls back the others. All
// failures are folded into a single batch error.
func fanOutDelete(ctx context.Context, ids []uuid.UUID, noun string, logger *zap.Logger, del func(context.Context, uuid.UUID) error) error {
	if len(ids) == 0 {
		return apperrors.BadRequest("No %s ids supplied", noun)
	}

	unique := dedupe(ids)
	var (
		mu     sync.Mutex
		failed []string
	)

	var g errgroup.Group
	g.SetLimit(bulkDeleteConcurrency)
	for _, id := range unique {
		g.Go(func() error {
			if err := del(ctx, id); err != nil {
				logger.Warn("Bulk delete item failed", zap.String("entity", noun), zap.String("id", id.String()), zap.Error(err))
				mu.Lock()
				failed = append(failed, id.String())
				mu.Unlock()
			}
			return nil
		})
	}
	// Items report failures through failed; no goroutine returns an error.
	g.Wait() //nolint:errcheck

	if len(failed) > 0 {
		sort.Strings(failed)
		return apperrors.BadRequest("Failed to delete %d of %d %s: %s", len(failed), len(unique), noun, strings.Join(failed, ", "))
	}
	return nil
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	sessionUseCase "github.com/pbarbosa/tenantvault/internal/session/usecase"
)

// RunCleanExpiredSessions deletes sessions that expired before the retention
// window. Supports both text and JSON output formats.
//
// Requirements: Database must be migrated and accessible.
func RunCleanExpiredSessions(
	ctx context.Context,
	sessions sessionUseCase.SessionUseCase,
	logger *slog.Logger,
	writer io.Writer,
	retention time.Duration,
	format string,
) error {
	if retention < 0 {
		return fmt.Errorf("retention must not be negative, got: %s", retention)
	}

	logger.Info("cleaning expired sessions", slog.Duration("retention", retention))

	count, err := sessions.CleanExpired(ctx, retention)
	if err != nil {
		return fmt.Errorf("failed to clean expired sessions: %w", err)
	}

	if format == "json" {
		writeJSON(writer, map[string]any{
			"count":     count,
			"retention": retention.String(),
		})
	} else {
		_, _ = fmt.Fprintf(writer, "Deleted %d session(s) expired for longer than %s\n", count, retention)
	}

	logger.Info("cleanup completed",
		slog.Int64("count", count),
		slog.Duration("retention", retention),
	)

	return nil
}

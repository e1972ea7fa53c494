package testfixtures

import (
	"io"
	"log/slog"
	"testing"

	"github.com/example/reservation-engine/internal/application"
	"github.com/example/reservation-engine/internal/persistence"
	"github.com/example/reservation-engine/internal/scheduler"
)

// ManagerDeps captures dependencies for constructing a booking manager. Zero
// values select an in-memory repository, the Reject strategy and a discarding logger.
type ManagerDeps struct {
	Repository   persistence.BookingRepository
	Strategy     scheduler.Strategy
	HistoryLimit int
	Logger       *slog.Logger
}

// NewManager builds a booking manager with deterministic operation identifiers.
func NewManager(tb testing.TB, deps ManagerDeps) *application.BookingManager {
	tb.Helper()

	repo := deps.Repository
	if repo == nil {
		repo = NewRepository(tb, nil)
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return application.NewBookingManagerWithLogger(repo, deps.Strategy, application.ManagerOptions{
		HistoryLimit: deps.HistoryLimit,
		OperationID:  NewIDGenerator("").NextFunc(),
	}, logger)
}

package notification

import (
	"context"

	"ledgerwallet/internal/services/wallet"

	"go.uber.org/zap"
)

// Service turns wallet events into account holder notifications.
// Delivery is a structured log line for now.
type Service struct {
	logger *zap.Logger
}

// NewService creates a new notification service.
func NewService(logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{logger: logger.Named("notification")}
}

// Handle implements wallet.Listener. Holders are notified from the finished
// event, which only carries a transaction once it has been committed.
func (s *Service) Handle(ctx context.Context, event wallet.Event) error {
	switch event.Type {
	case wallet.EventFinished:
		if event.Transaction == nil {
			return nil
		}
		s.logger.Info("notify account holder",
			zap.String("account_id", event.AccountID),
			zap.String("direction", string(event.Direction)),
			zap.String("amount", event.Amount.String()),
			zap.String("transaction_id", event.Transaction.ID),
		)
	case wallet.EventFailed:
		s.logger.Warn("notify account holder of failed operation",
			zap.String("account_id", event.AccountID),
			zap.Error(event.Err),
		)
	}
	return nil
}

package mongo

import (
	"context"
	"fmt"

	apperrors "medibook/pkg/errors"

	"go.mongodb.org/mongo-driver/mongo"
)

// TransactionFunc runs inside a single Mongo transaction. Callees must
// thread the session context through every operation or the writes
// escape the transaction.
type TransactionFunc func(ctx mongo.SessionContext) error

// TransactionManager wraps the session lifecycle around a callback.
// The reservation path relies on it to commit the slot flip and the
// ledger insert together or not at all.
type TransactionManager interface {
	ExecuteTransaction(ctx context.Context, fn TransactionFunc) error
}

type transactionManager struct {
	client *mongo.Client
}

func NewTransactionManager(client *mongo.Client) TransactionManager {
	return &transactionManager{client: client}
}

func (m *transactionManager) ExecuteTransaction(ctx context.Context, fn TransactionFunc) error {
	session, err := m.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	if _, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (any, error) {
		return nil, fn(sessCtx)
	}); err != nil {
		// AppErrors are deliberate aborts (slot taken, status raced);
		// pass them through unwrapped for the HTTP layer.
		if apperrors.IsAppError(err) {
			return err
		}
		return fmt.Errorf("transaction failed: %w", err)
	}

	return nil
}

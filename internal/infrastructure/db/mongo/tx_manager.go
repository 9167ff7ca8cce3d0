package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
)

// TxManager runs functions inside a MongoDB multi-document transaction. It
// requires a replica set or sharded deployment.
type TxManager struct {
	client *mongo.Client
}

func NewTxManager(client *mongo.Client) *TxManager {
	return &TxManager{client: client}
}

// RunInTx commits when fn returns nil and aborts otherwise. The driver may
// retry fn on transient transaction errors. A call made inside an active
// session joins it.
func (m *TxManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}

	sess, err := m.client.StartSession()
	if err != nil {
		return persistence("start session", err)
	}
	defer sess.EndSession(context.WithoutCancel(ctx))

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

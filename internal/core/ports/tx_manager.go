package ports

import "context"

// TxManager runs fn inside a single database transaction. The transaction is
// carried by the context passed to fn; repositories called with that context
// join it. Any error returned by fn, or a panic, rolls the transaction back.
// Calls nested inside an open transaction join the outer one.
type TxManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

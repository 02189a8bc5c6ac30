package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

// Tx is an opaque transaction handle. Repositories accept nil for the
// non-transactional path.
type Tx interface{}

var NoTX interface{}

// TransactionManager executes fn inside a database transaction and passes the
// handle on as tx. Repositories that receive a live tx lock the rows they read
// (SELECT ... FOR UPDATE) so read-check-write sequences stay atomic.
//
//	tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
//		p, err := pending.FindByMerchantTxnID(ctx, tx, id)
//		...
//		return err
//	})
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}

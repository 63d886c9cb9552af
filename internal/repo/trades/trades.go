package trades

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"sniper_bot/internal/models"
	"sniper_bot/pkg/db"
)

const createTable = `
CREATE TABLE IF NOT EXISTS trades (
    id         BIGSERIAL PRIMARY KEY,
    closed_at  TIMESTAMPTZ      NOT NULL,
    symbol     TEXT             NOT NULL,
    side       TEXT             NOT NULL,
    entry      DOUBLE PRECISION NOT NULL,
    exit       DOUBLE PRECISION NOT NULL,
    qty        DOUBLE PRECISION NOT NULL,
    pnl        DOUBLE PRECISION NOT NULL,
    reason     TEXT             NOT NULL
)`

// Repo — история закрытых сделок в Postgres.
type Repo struct {
	tx *db.PgTxManager
}

func New(tx *db.PgTxManager) *Repo {
	return &Repo{tx: tx}
}

func (r *Repo) Migrate(ctx context.Context) error {
	err := r.tx.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctxTx, createTable)
		return err
	})
	return errors.Wrap(err, "migrate trades")
}

func (r *Repo) Insert(ctx context.Context, rec models.TradeRecord) error {
	err := r.tx.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctxTx,
			`INSERT INTO trades (closed_at, symbol, side, entry, exit, qty, pnl, reason)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			rec.Time, rec.Symbol, string(rec.Side), rec.Entry, rec.Exit, rec.Qty, rec.PnL, string(rec.Reason),
		)
		return err
	})
	return errors.Wrap(err, "insert trade")
}

// Recent — последние n сделок, свежие первыми.
func (r *Repo) Recent(ctx context.Context, n int) ([]models.TradeRecord, error) {
	if n <= 0 {
		n = 10
	}

	var out []models.TradeRecord
	err := r.tx.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		rows, err := tx.Query(ctxTx,
			`SELECT closed_at, symbol, side, entry, exit, qty, pnl, reason
			 FROM trades ORDER BY closed_at DESC LIMIT $1`, n)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var (
				rec    models.TradeRecord
				ts     time.Time
				side   string
				reason string
			)
			if err = rows.Scan(&ts, &rec.Symbol, &side, &rec.Entry, &rec.Exit, &rec.Qty, &rec.PnL, &reason); err != nil {
				return err
			}
			rec.Time = ts
			rec.Side = models.Side(side)
			rec.Reason = models.CloseReason(reason)
			out = append(out, rec)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, errors.Wrap(err, "select trades")
	}
	return out, nil
}

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/STTM-NSU/mt5-sync/internal/model"
	"github.com/lib/pq"
)

const (
	_queryOpenPositionIDs = "SELECT position_id FROM open_positions WHERE login = $1"
	// The WHERE clause keeps an identical re-sync from touching the row.
	_upsertOpenPosition = `INSERT INTO open_positions (
								login,
								position_id,
								symbol,
								volume,
								open_price,
								profit,
								side,
								opened_at
							) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
							ON CONFLICT (login, position_id)
							DO UPDATE SET
								symbol = EXCLUDED.symbol,
								volume = EXCLUDED.volume,
								open_price = EXCLUDED.open_price,
								profit = EXCLUDED.profit,
								side = EXCLUDED.side,
								opened_at = EXCLUDED.opened_at
							WHERE (open_positions.symbol, open_positions.volume, open_positions.open_price,
								   open_positions.profit, open_positions.side, open_positions.opened_at)
								IS DISTINCT FROM
								  (EXCLUDED.symbol, EXCLUDED.volume, EXCLUDED.open_price,
								   EXCLUDED.profit, EXCLUDED.side, EXCLUDED.opened_at)
							RETURNING (xmax = 0) AS inserted;`
	_deleteOpenPositions = "DELETE FROM open_positions WHERE login = $1 AND position_id = ANY($2)"
	_upsertClosed        = `INSERT INTO closed_positions (
								login,
								position_id,
								deal_id,
								symbol,
								volume,
								open_price,
								close_price,
								profit,
								side,
								closed_at
							) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
							ON CONFLICT (login, position_id)
							DO UPDATE SET
								deal_id = EXCLUDED.deal_id,
								symbol = EXCLUDED.symbol,
								volume = EXCLUDED.volume,
								open_price = EXCLUDED.open_price,
								close_price = EXCLUDED.close_price,
								profit = EXCLUDED.profit,
								side = EXCLUDED.side,
								closed_at = EXCLUDED.closed_at
							WHERE (closed_positions.deal_id, closed_positions.symbol, closed_positions.volume,
								   closed_positions.open_price, closed_positions.close_price, closed_positions.profit,
								   closed_positions.side, closed_positions.closed_at)
								IS DISTINCT FROM
								  (EXCLUDED.deal_id, EXCLUDED.symbol, EXCLUDED.volume,
								   EXCLUDED.open_price, EXCLUDED.close_price, EXCLUDED.profit,
								   EXCLUDED.side, EXCLUDED.closed_at)
							RETURNING (xmax = 0) AS inserted;`

	_queryOpenPositions = `SELECT login, position_id, symbol, volume, open_price, profit, side, opened_at
		FROM open_positions
		WHERE ($1::bigint = 0 OR login = $1) AND ($2::text = '' OR symbol = $2)
		ORDER BY login, position_id`
	_queryClosedPositions = `SELECT login, position_id, deal_id, symbol, volume, open_price, close_price, profit, side, closed_at
		FROM closed_positions
		WHERE ($1::bigint = 0 OR login = $1) AND ($2::text = '' OR symbol = $2)
			AND ($3::timestamptz IS NULL OR closed_at >= $3)
			AND ($4::timestamptz IS NULL OR closed_at < $4)
		ORDER BY closed_at DESC, login, position_id`
)

func scanWriteResult(row interface{ Scan(...any) error }) (model.WriteResult, error) {
	var inserted bool
	if err := row.Scan(&inserted); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.WriteUnchanged, nil
		}
		return model.WriteUnchanged, err
	}
	if inserted {
		return model.WriteInserted, nil
	}
	return model.WriteUpdated, nil
}

func (s *Storage) OpenPositionIDs(ctx context.Context, login uint64) ([]uint64, error) {
	ids := make([]uint64, 0)
	if err := s.db.SelectContext(ctx, &ids, _queryOpenPositionIDs, login); err != nil {
		return nil, fmt.Errorf("%w: can't query open position ids", err)
	}
	return ids, nil
}

func (s *Storage) UpsertOpenPosition(ctx context.Context, p model.OpenPosition) (model.WriteResult, error) {
	row := s.db.QueryRowxContext(ctx, _upsertOpenPosition,
		p.Login,
		p.PositionID,
		p.Symbol,
		p.Volume,
		p.OpenPrice,
		p.Profit,
		p.Side,
		p.OpenedAt,
	)
	res, err := scanWriteResult(row)
	if err != nil {
		return res, fmt.Errorf("%w: can't upsert open position %d", err, p.PositionID)
	}
	return res, nil
}

// DeleteOpenPositions removes the given ids of one account in a single statement.
func (s *Storage) DeleteOpenPositions(ctx context.Context, login uint64, ids []uint64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	arr := make([]int64, len(ids))
	for i, id := range ids {
		arr[i] = int64(id)
	}

	res, err := s.db.ExecContext(ctx, _deleteOpenPositions, login, pq.Array(arr))
	if err != nil {
		return 0, fmt.Errorf("%w: can't delete stale open positions", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: can't count deleted open positions", err)
	}
	return n, nil
}

func (s *Storage) UpsertClosedPosition(ctx context.Context, p model.ClosedPosition) (model.WriteResult, error) {
	row := s.db.QueryRowxContext(ctx, _upsertClosed,
		p.Login,
		p.PositionID,
		p.DealID,
		p.Symbol,
		p.Volume,
		p.OpenPrice,
		p.ClosePrice,
		p.Profit,
		p.Side,
		p.ClosedAt,
	)
	res, err := scanWriteResult(row)
	if err != nil {
		return res, fmt.Errorf("%w: can't upsert closed position %d", err, p.PositionID)
	}
	return res, nil
}

func (s *Storage) ListOpenPositions(ctx context.Context, f PositionFilter) ([]model.OpenPosition, error) {
	positions := make([]model.OpenPosition, 0)
	if err := s.db.SelectContext(ctx, &positions, _queryOpenPositions, f.Login, f.Symbol); err != nil {
		return nil, fmt.Errorf("%w: can't query open positions", err)
	}
	return positions, nil
}

func (s *Storage) ListClosedPositions(ctx context.Context, f PositionFilter) ([]model.ClosedPosition, error) {
	positions := make([]model.ClosedPosition, 0)
	if err := s.db.SelectContext(ctx, &positions, _queryClosedPositions, f.Login, f.Symbol, f.From, f.To); err != nil {
		return nil, fmt.Errorf("%w: can't query closed positions", err)
	}
	return positions, nil
}

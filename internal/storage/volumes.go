package storage

import (
	"context"
	"fmt"

	"github.com/STTM-NSU/mt5-sync/internal/model"
	"github.com/STTM-NSU/mt5-sync/internal/tools"
)

const (
	_querySymbolVolumes = `SELECT symbol, SUM(open_volume) AS open_volume, SUM(closed_volume) AS closed_volume
		FROM (
			SELECT symbol, volume AS open_volume, 0::double precision AS closed_volume
			FROM open_positions
			WHERE ($1::bigint = 0 OR login = $1) AND ($2::text = '' OR symbol = $2)
			UNION ALL
			SELECT symbol, 0::double precision AS open_volume, volume AS closed_volume
			FROM closed_positions
			WHERE ($1::bigint = 0 OR login = $1) AND ($2::text = '' OR symbol = $2)
		) v
		GROUP BY symbol
		ORDER BY symbol`
	_queryLotMatrix = `SELECT login, symbol, SUM(volume) AS lot
		FROM open_positions
		GROUP BY login, symbol
		ORDER BY login, symbol`
)

// SymbolVolumes sums open and closed lots per symbol. Net is open plus closed.
func (s *Storage) SymbolVolumes(ctx context.Context, f PositionFilter) ([]model.SymbolVolume, error) {
	volumes := make([]model.SymbolVolume, 0)
	if err := s.db.SelectContext(ctx, &volumes, _querySymbolVolumes, f.Login, f.Symbol); err != nil {
		return nil, fmt.Errorf("%w: can't query symbol volumes", err)
	}
	for i := range volumes {
		volumes[i].OpenVolume = tools.RoundVolume(volumes[i].OpenVolume)
		volumes[i].ClosedVolume = tools.RoundVolume(volumes[i].ClosedVolume)
		volumes[i].NetVolume = tools.RoundVolume(volumes[i].OpenVolume + volumes[i].ClosedVolume)
	}
	return volumes, nil
}

// LotMatrix returns open lots per (login, symbol).
func (s *Storage) LotMatrix(ctx context.Context) ([]model.LoginSymbolLot, error) {
	lots := make([]model.LoginSymbolLot, 0)
	if err := s.db.SelectContext(ctx, &lots, _queryLotMatrix); err != nil {
		return nil, fmt.Errorf("%w: can't query lot matrix", err)
	}
	for i := range lots {
		lots[i].Lot = tools.RoundVolume(lots[i].Lot)
	}
	return lots, nil
}

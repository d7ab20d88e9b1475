package model

import (
	"errors"
	"time"
)

type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// SideFromAction maps the remote action code (0 buy, 1 sell).
func SideFromAction(action int) Side {
	switch action {
	case 0:
		return Buy
	case 1:
		return Sell
	default:
		return ""
	}
}

var (
	ErrMissingPositionID = errors.New("missing position id")
	ErrMissingSymbol     = errors.New("missing symbol")
	ErrMissingVolume     = errors.New("missing volume")
	ErrMissingPrice      = errors.New("missing price")
	ErrMissingSide       = errors.New("missing side")
)

// PositionRecord is one open position as returned by a snapshot fetch.
type PositionRecord struct {
	PositionID uint64
	Login      uint64
	Symbol     string
	Volume     float64
	OpenPrice  float64
	Profit     float64
	Side       Side
	OpenedAt   time.Time
}

func (p PositionRecord) Validate() error {
	switch {
	case p.PositionID == 0:
		return ErrMissingPositionID
	case p.Symbol == "":
		return ErrMissingSymbol
	case p.Volume <= 0:
		return ErrMissingVolume
	case p.OpenPrice <= 0:
		return ErrMissingPrice
	case p.Side != Buy && p.Side != Sell:
		return ErrMissingSide
	}
	return nil
}

func (p PositionRecord) ToOpenPosition() OpenPosition {
	return OpenPosition{
		Login:      p.Login,
		PositionID: p.PositionID,
		Symbol:     p.Symbol,
		Volume:     p.Volume,
		OpenPrice:  p.OpenPrice,
		Profit:     p.Profit,
		Side:       p.Side,
		OpenedAt:   p.OpenedAt,
	}
}

type OpenPosition struct {
	Login      uint64    `json:"login" db:"login"`
	PositionID uint64    `json:"position_id" db:"position_id"`
	Symbol     string    `json:"symbol" db:"symbol"`
	Volume     float64   `json:"volume" db:"volume"`
	OpenPrice  float64   `json:"open_price" db:"open_price"`
	Profit     float64   `json:"profit" db:"profit"`
	Side       Side      `json:"side" db:"side"`
	OpenedAt   time.Time `json:"opened_at" db:"opened_at"`
}

type ClosedPosition struct {
	Login      uint64    `json:"login" db:"login"`
	PositionID uint64    `json:"position_id" db:"position_id"`
	DealID     uint64    `json:"deal_id" db:"deal_id"`
	Symbol     string    `json:"symbol" db:"symbol"`
	Volume     float64   `json:"volume" db:"volume"`
	OpenPrice  float64   `json:"open_price" db:"open_price"`
	ClosePrice float64   `json:"close_price" db:"close_price"`
	Profit     float64   `json:"profit" db:"profit"`
	Side       Side      `json:"side" db:"side"`
	ClosedAt   time.Time `json:"closed_at" db:"closed_at"`
}

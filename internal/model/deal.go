package model

import "time"

const (
	DealEntryIn  = 0
	DealEntryOut = 1 // closing entry

	DealActionBuy  = 0
	DealActionSell = 1
)

// DealRecord is a raw deal as returned by the remote deal query, volumes already scaled.
type DealRecord struct {
	DealID        uint64
	PositionID    uint64
	Login         uint64
	Symbol        string
	Action        int
	Entry         int
	Volume        float64
	VolumeClosed  float64
	Price         float64
	PricePosition float64
	Profit        float64
	Time          time.Time

	// RawVolumeClosed is the unscaled remote value; a tiny close can round VolumeClosed to 0.
	RawVolumeClosed uint64
}

// IsClosing reports whether the deal terminates (fully or partially) an existing position.
func (d DealRecord) IsClosing() bool {
	return d.Entry == DealEntryOut &&
		d.Symbol != "" &&
		d.RawVolumeClosed > 0 &&
		(d.Action == DealActionBuy || d.Action == DealActionSell)
}

func (d DealRecord) Validate() error {
	switch {
	case d.PositionID == 0:
		return ErrMissingPositionID
	case d.Symbol == "":
		return ErrMissingSymbol
	case d.VolumeClosed <= 0:
		return ErrMissingVolume
	case d.Price <= 0:
		return ErrMissingPrice
	}
	return nil
}

func (d DealRecord) ToClosedPosition() ClosedPosition {
	return ClosedPosition{
		Login:      d.Login,
		PositionID: d.PositionID,
		DealID:     d.DealID,
		Symbol:     d.Symbol,
		Volume:     d.VolumeClosed,
		OpenPrice:  d.PricePosition,
		ClosePrice: d.Price,
		Profit:     d.Profit,
		Side:       SideFromAction(d.Action),
		ClosedAt:   d.Time,
	}
}

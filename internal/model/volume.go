package model

type SymbolVolume struct {
	Symbol       string  `json:"symbol" db:"symbol"`
	OpenVolume   float64 `json:"open_volume" db:"open_volume"`
	ClosedVolume float64 `json:"closed_volume" db:"closed_volume"`
	NetVolume    float64 `json:"net_volume" db:"net_volume"`
}

type LoginSymbolLot struct {
	Login  uint64  `json:"login_id" db:"login"`
	Symbol string  `json:"symbol" db:"symbol"`
	Lot    float64 `json:"lot" db:"lot"`
}

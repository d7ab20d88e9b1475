package mt5

import (
	"encoding/json"
	"time"

	"github.com/STTM-NSU/mt5-sync/internal/model"
	"github.com/STTM-NSU/mt5-sync/internal/tools"
)

type envelope struct {
	Retcode string          `json:"retcode"`
	Answer  json.RawMessage `json:"answer"`
}

type authRequest struct {
	Server   string `json:"server"`
	Login    uint64 `json:"login"`
	Password string `json:"password"`
	PumpMode int    `json:"pump_mode"`
	Timeout  int    `json:"timeout"`
}

type authAnswer struct {
	Token string `json:"token"`
}

type groupTotal struct {
	Total int `json:"total"`
}

type groupNext struct {
	Group string `json:"group"`
}

type webUser struct {
	Login        uint64 `json:"Login"`
	Group        string `json:"Group"`
	Name         string `json:"Name"`
	Email        string `json:"Email"`
	Leverage     int    `json:"Leverage"`
	Registration int64  `json:"Registration"`
	LastAccess   int64  `json:"LastAccess"`
}

type webAccount struct {
	Login       uint64  `json:"Login"`
	Balance     float64 `json:"Balance"`
	Equity      float64 `json:"Equity"`
	Profit      float64 `json:"Profit"`
	Margin      float64 `json:"Margin"`
	MarginFree  float64 `json:"MarginFree"`
	MarginLevel float64 `json:"MarginLevel"`
}

type webPosition struct {
	Position   uint64  `json:"Position"`
	Login      uint64  `json:"Login"`
	Symbol     string  `json:"Symbol"`
	Action     int     `json:"Action"`
	Volume     uint64  `json:"Volume"`
	PriceOpen  float64 `json:"PriceOpen"`
	Profit     float64 `json:"Profit"`
	TimeCreate int64   `json:"TimeCreate"`
}

type webDeal struct {
	Deal          uint64  `json:"Deal"`
	Position      uint64  `json:"PositionID"`
	Login         uint64  `json:"Login"`
	Symbol        string  `json:"Symbol"`
	Action        int     `json:"Action"`
	Entry         int     `json:"Entry"`
	Volume        uint64  `json:"Volume"`
	VolumeClosed  uint64  `json:"VolumeClosed"`
	Price         float64 `json:"Price"`
	PricePosition float64 `json:"PricePosition"`
	Profit        float64 `json:"Profit"`
	Time          int64   `json:"Time"`
}

func unixOrNil(sec int64) *time.Time {
	if sec <= 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}

func mapUser(u webUser) model.Account {
	return model.Account{
		Login:        u.Login,
		Name:         u.Name,
		Email:        u.Email,
		Group:        u.Group,
		Leverage:     u.Leverage,
		Registration: unixOrNil(u.Registration),
		LastAccess:   unixOrNil(u.LastAccess),
	}
}

func mapAccount(a webAccount) model.Account {
	return model.Account{
		Login:       a.Login,
		Balance:     a.Balance,
		Equity:      a.Equity,
		Profit:      a.Profit,
		Margin:      a.Margin,
		MarginFree:  a.MarginFree,
		MarginLevel: a.MarginLevel,
	}
}

func mapPosition(p webPosition) model.PositionRecord {
	return model.PositionRecord{
		PositionID: p.Position,
		Login:      p.Login,
		Symbol:     p.Symbol,
		Volume:     tools.ScaleVolume(p.Volume),
		OpenPrice:  p.PriceOpen,
		Profit:     p.Profit,
		Side:       model.SideFromAction(p.Action),
		OpenedAt:   time.Unix(p.TimeCreate, 0).UTC(),
	}
}

func mapDeal(d webDeal) model.DealRecord {
	return model.DealRecord{
		DealID:          d.Deal,
		PositionID:      d.Position,
		Login:           d.Login,
		Symbol:          d.Symbol,
		Action:          d.Action,
		Entry:           d.Entry,
		Volume:          tools.ScaleVolume(d.Volume),
		VolumeClosed:    tools.ScaleVolume(d.VolumeClosed),
		RawVolumeClosed: d.VolumeClosed,
		Price:           d.Price,
		PricePosition:   d.PricePosition,
		Profit:          d.Profit,
		Time:            time.Unix(d.Time, 0).UTC(),
	}
}

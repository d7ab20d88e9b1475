package model

import "time"

type Account struct {
	Login        uint64     `json:"login" db:"login"`
	Name         string     `json:"name" db:"name"`
	Email        string     `json:"email" db:"email"`
	Group        string     `json:"group" db:"group_name"`
	Leverage     int        `json:"leverage" db:"leverage"`
	Balance      float64    `json:"balance" db:"balance"`
	Equity       float64    `json:"equity" db:"equity"`
	Profit       float64    `json:"profit" db:"profit"`
	Margin       float64    `json:"margin" db:"margin"`
	MarginFree   float64    `json:"margin_free" db:"margin_free"`
	MarginLevel  float64    `json:"margin_level" db:"margin_level"`
	LastAccess   *time.Time `json:"last_access,omitempty" db:"last_access"`
	Registration *time.Time `json:"registration,omitempty" db:"registration"`
	SyncedAt     time.Time  `json:"synced_at" db:"synced_at"`
}

type Group struct {
	Name string `json:"name" db:"name"`
}

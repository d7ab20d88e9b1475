package model

import (
	"net"
	"strings"
	"time"
)

const DefaultServerPort = "443"

type ServerSetting struct {
	ID         int64     `json:"id" db:"id"`
	ServerIP   string    `json:"server_ip" db:"server_ip"` // host[:port]
	Login      uint64    `json:"login_id" db:"login"`
	Password   string    `json:"-" db:"password"`
	ServerName string    `json:"server_name" db:"server_name"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// HostPort splits ServerIP, defaulting the port.
func (s ServerSetting) HostPort() (string, string) {
	return SplitHostPort(s.ServerIP)
}

func SplitHostPort(addr string) (string, string) {
	if !strings.Contains(addr, ":") {
		return addr, DefaultServerPort
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, DefaultServerPort
	}
	if port == "" {
		port = DefaultServerPort
	}
	return host, port
}

package mt5

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrNotFound = errors.New("not found on remote")

const (
	RetcodeOK       = 0
	RetcodeNotFound = 13

	// CodeNetwork marks failures that never reached the gateway.
	CodeNetwork = -1
	// CodeHTTP marks a non-2xx gateway answer without a retcode.
	CodeHTTP = -2
)

// ConnectionError is returned when a session can't be established or has broken.
type ConnectionError struct {
	Code    int
	Message string
	Err     error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("mt5 connection error %d: %s", e.Code, e.Message)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// RetcodeError is a non-zero retcode on a regular call.
type RetcodeError struct {
	Code int
	Text string
}

func (e *RetcodeError) Error() string {
	return fmt.Sprintf("mt5 retcode %d: %s", e.Code, e.Text)
}

// parseRetcode splits "<code> <text>". An unparsable code is reported as -1.
func parseRetcode(raw string) (int, string) {
	raw = strings.TrimSpace(raw)
	head, text, _ := strings.Cut(raw, " ")
	code, err := strconv.Atoi(head)
	if err != nil {
		return -1, raw
	}
	return code, strings.TrimSpace(text)
}

func retcodeErr(raw string) error {
	code, text := parseRetcode(raw)
	switch code {
	case RetcodeOK:
		return nil
	case RetcodeNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, text)
	default:
		return &RetcodeError{Code: code, Text: text}
	}
}

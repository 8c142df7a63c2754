package provider

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies why a fetch produced no quote.
type Kind int

const (
	KindUnknown Kind = iota
	KindConfig
	KindTransport
	KindTimeout
	KindCanceled
	KindStatus
	KindUpstream
	KindDecode
	KindShape
	KindEntry
	KindNumber
)

var kindNames = map[Kind]string{
	KindUnknown:   "unknown",
	KindConfig:    "config",
	KindTransport: "transport",
	KindTimeout:   "timeout",
	KindCanceled:  "canceled",
	KindStatus:    "http_status",
	KindUpstream:  "upstream",
	KindDecode:    "decode",
	KindShape:     "shape",
	KindEntry:     "entry",
	KindNumber:    "number",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is a classified fetch failure.
type Error struct {
	Kind       Kind
	Ticker     string
	StatusCode int    // set for KindStatus
	Message    string // provider message or offending value
	Err        error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Ticker)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(": status %d", e.StatusCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf reports the classification of err. Bare context errors map to
// KindCanceled / KindTimeout so decorators that only return ctx.Err() are
// still classified.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	switch {
	case errors.Is(err, context.Canceled):
		return KindCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	}
	return KindUnknown
}

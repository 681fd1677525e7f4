package db

import (
	"errors"
	"strconv"
	"strings"
)

// Sentinel errors for backend and cache operations.
var (
	ErrKeyNotFound   = errors.New("db: key not found")
	ErrIndexNotFound = errors.New("db: index not found")
	ErrTransport     = errors.New("db: transport failure")
)

// Op constants name backend endpoints and cache commands for error context.
const (
	OpSearch         = "_search"
	OpMultiSearch    = "_msearch"
	OpScrollOpen     = "_search?scroll"
	OpScrollContinue = "_search/scroll"
	OpScrollClear    = "DELETE _search/scroll"
	OpBulk           = "_bulk"
	OpUpdateByQuery  = "_update_by_query"
	OpMapping        = "_mapping"
	OpPutMapping     = "PUT _mapping"
	OpSettings       = "_settings"
	OpCatIndices     = "_cat/indices"
	OpOpenIndex      = "_open"
	OpCloseIndex     = "_close"
	OpDeleteIndex    = "DELETE index"
	OpPing           = "ping"

	OpGet = "GET"
	OpSet = "SET"
	OpDel = "DEL"
)

// Error wraps an underlying failure with the operation name and, for HTTP
// responses, the status and backend reason. Every Error matches ErrTransport.
type Error struct {
	Op     string
	Status int
	Reason string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Status != 0 {
		b.WriteString(": status ")
		b.WriteString(strconv.Itoa(e.Status))
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports ErrTransport for every backend error.
func (e *Error) Is(target error) bool { return target == ErrTransport }

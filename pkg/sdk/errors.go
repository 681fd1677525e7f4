package factdex

import (
	"github.com/kailas-cloud/factdex/internal/db"
	"github.com/kailas-cloud/factdex/internal/domain"
	"github.com/kailas-cloud/factdex/internal/domain/scroll"
)

// Sentinel errors re-exported from the internal layers.
// Use errors.Is() to check.
var (
	ErrIncompatibleQuery = domain.ErrIncompatibleQuery
	ErrSchema            = domain.ErrSchema
	ErrNoData            = domain.ErrNoData
	ErrNoDatasets        = domain.ErrNoDatasets
	ErrInvalidArgument   = domain.ErrInvalidArgument
	ErrTransport         = db.ErrTransport
	ErrIndexNotFound     = db.ErrIndexNotFound
	// ErrStop ends a Scroll early when returned from its callback.
	ErrStop = scroll.ErrStop
)

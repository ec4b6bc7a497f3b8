package ferry

import (
	"context"

	"github.com/meigma/ferry/core"
	"github.com/meigma/ferry/internal/contracts"
)

// Engine performs one blocking transfer. Re-exported from core package.
type Engine = core.Engine

// Scheduler runs tasks on the owner goroutine. Re-exported from core package.
type Scheduler = core.Scheduler

// ProgressFunc receives cumulative engine progress. Re-exported from core package.
type ProgressFunc = core.ProgressFunc

// Credentials are basic authentication credentials for uploads.
type Credentials = core.Credentials

// Stats reports transfer counters for a client.
type Stats = core.Stats

// Kind is the direction of a transfer.
type Kind = core.Kind

// Transfer directions.
const (
	KindDownload = core.KindDownload
	KindUpload   = core.KindUpload
)

type requestValidator interface {
	ValidateRequest(req *core.Request) error
}

type transferRunner interface {
	Run(ctx context.Context, id uint64, req *core.Request, sink contracts.EventSink) error
}

package opts

import (
	"github.com/gurr-i/tgsaver/pkg/batch"
	"github.com/gurr-i/tgsaver/pkg/config"
	"github.com/gurr-i/tgsaver/pkg/errtrack"
	"github.com/gurr-i/tgsaver/pkg/frontend"
	"github.com/gurr-i/tgsaver/pkg/perf"
	"github.com/gurr-i/tgsaver/pkg/progress"
	"github.com/gurr-i/tgsaver/pkg/rate"
	"github.com/gurr-i/tgsaver/pkg/staging"
	"github.com/gurr-i/tgsaver/pkg/transfer"
)

// RootOpts contains shared options used by all commands
type RootOpts struct {
	Config     *config.Config
	Controller *batch.Controller
	Limiter    *rate.Limiter
	Tracker    *progress.Tracker
	Metrics    *perf.Metrics
	Errors     *errtrack.Tracker
	Staging    *staging.Store
	Pool       *transfer.Pool
	Console    *frontend.Console
}

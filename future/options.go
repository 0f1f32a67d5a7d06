package future

import "github.com/everyday-items/flowkit/flog"

// Option configures the shared state behind a newly constructed Future,
// in the same functional-options shape as the router and pool executor
// constructors.
type Option func(*settings)

type settings struct {
	log flog.Logger
}

// WithLogger attaches a logger for Debug-level diagnostics — currently
// the broken-promise resolution of an abandoned chain. Futures derived
// from this one (Then, Recover, ThenCompose) inherit it. Defaults to
// flog.Noop.
func WithLogger(l flog.Logger) Option {
	return func(s *settings) { s.log = l }
}

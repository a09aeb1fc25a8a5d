package leantime

import (
	"github.com/rs/zerolog"

	"github.com/leanmobile/leanbridge/internal/config"
	"github.com/leanmobile/leanbridge/internal/metrics"
	"github.com/leanmobile/leanbridge/internal/rpc"
)

// commentPrefixes are the namespaces the upstream has shipped comments
// under, in preference order.
var commentPrefixes = []string{"leantime.rpc.comments", "leantime.rpc.Comments.Comments"}

// Service bundles the typed accessors. All methods take the caller's
// credential source so one Service instance serves every session.
type Service struct {
	caller   rpc.Caller
	chain    *rpc.Chain
	comments *rpc.PrefixResolver
	i18n     map[string]string
	logger   zerolog.Logger
}

// New builds a Service. metrics may be nil.
func New(caller rpc.Caller, probe config.Probe, logger zerolog.Logger, m *metrics.Metrics) *Service {
	l := logger.With().Str("component", "leantime").Logger()
	return &Service{
		caller:   caller,
		chain:    rpc.NewChain(caller, l, m),
		comments: rpc.NewPrefixResolver(commentPrefixes, l, m),
		i18n:     probe.StatusI18n,
		logger:   l,
	}
}

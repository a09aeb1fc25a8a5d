package leantime

import (
	"context"

	"github.com/leanmobile/leanbridge/internal/normalize"
	"github.com/leanmobile/leanbridge/internal/upstream"
)

// StatusLabels fetches the board's status metadata and normalizes it to
// display form. Any failure degrades to the built-in fallback list so
// the board stays usable; this call never errors.
func (s *Service) StatusLabels(ctx context.Context, src upstream.CredentialSource) []normalize.StatusLabel {
	raw, err := s.caller.Call(ctx, src, "leantime.rpc.tickets.getStatusLabels", nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("status label fetch failed, using fallback list")
		return normalize.FallbackStatusList
	}
	return normalize.StatusLabels(raw, s.i18n)
}

// IsDone reports whether a status code counts as completed.
func IsDone(status string) bool {
	return normalize.DoneStatuses[status]
}

package mediarouter

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/shoraid/go-media-router/metrics"
)

// DeleteInput identifies a record and the objects it references.
// ProviderID is required; there is no default slot.
type DeleteInput struct {
	RecordID     string
	ObjectKey    string
	ThumbnailKey string
	ProviderID   ProviderID
}

// DeleteInputFor builds the DeleteInput of a stored record.
func DeleteInputFor(record *MediaRecord) DeleteInput {
	in := DeleteInput{
		RecordID:   record.ID,
		ObjectKey:  record.ObjectKey,
		ProviderID: record.ProviderID,
	}
	if record.ThumbnailKey != nil {
		in.ThumbnailKey = *record.ThumbnailKey
	}
	return in
}

// DeleteMedia removes the metadata row, then the objects on the recorded
// provider. It reports failure as false and never returns an error; objects
// that could not be removed are reported as orphans.
func (s *Service) DeleteMedia(ctx context.Context, in DeleteInput) bool {
	ctx, span := tracer.Start(ctx, "mediarouter.DeleteMedia")
	defer span.End()
	span.SetAttributes(attribute.String("media.record_id", in.RecordID))

	logger := s.log.With().Str("record_id", in.RecordID).Str("object_key", in.ObjectKey).Logger()

	fail := func(reason string) bool {
		span.SetStatus(codes.Error, reason)
		metrics.RecordDeletion(false)
		return false
	}

	switch {
	case in.RecordID == "", in.ObjectKey == "":
		logger.Warn().Msg("delete called without record id or object key")
		return fail("invalid input")
	case !in.ProviderID.Valid():
		logger.Error().Int("provider", int(in.ProviderID)).Msg("delete requires the provider recorded at upload")
		return fail("invalid provider")
	}

	err := s.store.Delete(ctx, in.RecordID)
	switch {
	case errors.Is(err, ErrRecordNotFound):
		logger.Info().Msg("record already deleted, removing remaining objects")
	case err != nil:
		logger.Error().Err(err).Msg("failed to delete media record")
		return fail("metadata delete failed")
	}

	keys := []string{in.ObjectKey}
	if in.ThumbnailKey != "" {
		keys = append(keys, in.ThumbnailKey)
	}

	p, err := s.registry.Provider(ctx, in.ProviderID)
	if err == nil {
		if p.ID() != in.ProviderID {
			logger.Warn().
				Str("recorded", in.ProviderID.String()).
				Str("serving", p.ID().String()).
				Msg("recorded provider is not configured, deleting from primary")
		}
		err = p.DeleteObjects(ctx, keys...)
	}
	if err != nil {
		logger.Error().Err(err).Str("provider", in.ProviderID.String()).Msg("record deleted but objects remain")
		s.reportOrphan(ctx, Orphan{
			ProviderID: in.ProviderID,
			Keys:       keys,
			Reason:     OrphanDeleteFailed,
			Cause:      err.Error(),
		})
		return fail("object delete failed")
	}

	metrics.RecordDeletion(true)
	logger.Info().Str("provider", in.ProviderID.String()).Msg("media deleted")
	return true
}

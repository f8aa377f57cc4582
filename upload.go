package mediarouter

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/shoraid/go-media-router/metrics"
)

// Stage is a coarse step of the upload pipeline reported through ProgressFunc.
type Stage string

const (
	StageTransforming   Stage = "transforming"
	StageUploading      Stage = "uploading"
	StageSavingMetadata Stage = "saving-metadata"
	StageComplete       Stage = "complete"
)

// Progress is reported at every stage boundary.
type Progress struct {
	Stage   Stage
	Percent int
}

// ProgressFunc receives upload progress. It is called from the uploading goroutine.
type ProgressFunc func(Progress)

// UploadInput is everything a caller supplies for one upload.
type UploadInput struct {
	File        File
	Title       string
	Description string
	OwnerID     string
}

// BulkResult is the outcome of one item of UploadMany.
type BulkResult struct {
	Record *MediaRecord
	Err    error
}

type pendingObject struct {
	key         string
	data        []byte
	contentType string
}

// UploadMedia transforms the file, writes its objects to a selected provider
// (falling back to the primary slot once) and stores the MediaRecord. A record
// is only returned once both the objects and the metadata row are durable.
func (s *Service) UploadMedia(ctx context.Context, in UploadInput, progress ProgressFunc) (*MediaRecord, error) {
	ctx, span := tracer.Start(ctx, "mediarouter.UploadMedia")
	defer span.End()

	report := func(stage Stage, percent int) {
		if progress != nil {
			progress(Progress{Stage: stage, Percent: percent})
		}
	}

	if err := validateUpload(in); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	mediaID := s.newID()
	logger := s.log.With().Str("media_id", mediaID).Str("owner_id", in.OwnerID).Logger()
	span.SetAttributes(attribute.String("media.id", mediaID))

	declaredKind, _ := KindFromMIME(in.File.ContentType)

	report(StageTransforming, 10)
	art, err := s.transformer.Transform(ctx, in.File)
	if err != nil {
		if !errors.Is(err, ErrTransformFailed) {
			err = &TransformError{Op: "transform", Err: err}
		}
		return nil, s.failUpload(span, logger, declaredKind, &UploadError{Stage: StageTransforming, Err: err})
	}

	mimeType := art.ContentType
	kind := declaredKind
	if kind == "" {
		kind, _ = KindFromMIME(mimeType)
	}

	objectKey := ObjectKey(in.OwnerID, mediaID, Extension(in.File.Name, mimeType, art.Reencoded))

	var (
		objects  []pendingObject
		thumbKey *string
	)
	if len(art.Thumbnail) > 0 {
		key := ThumbnailKey(in.OwnerID, mediaID)
		thumbKey = &key
		objects = append(objects, pendingObject{key: key, data: art.Thumbnail, contentType: art.ThumbnailContentType})
	}
	objects = append(objects, pendingObject{key: objectKey, data: art.Data, contentType: mimeType})

	selected := s.selectProvider(ctx, logger)

	report(StageUploading, 40)
	used, err := s.writeObjects(ctx, selected, objects, logger)
	if err != nil && used != Primary {
		logger.Warn().
			Err(err).
			Str("provider", used.String()).
			Msg("write to selected provider failed, falling back to primary")
		metrics.RecordFallback(used.String())
		used, err = s.writeObjects(ctx, Primary, objects, logger)
	}
	if err != nil {
		return nil, s.failUpload(span, logger, kind, &UploadError{Stage: StageUploading, Provider: used, Err: err})
	}
	span.SetAttributes(attribute.String("media.provider", used.String()))

	record := &MediaRecord{
		MediaID:         mediaID,
		OwnerID:         in.OwnerID,
		ObjectKey:       objectKey,
		ThumbnailKey:    thumbKey,
		Kind:            kind,
		ByteSize:        int64(len(art.Data)),
		MimeType:        mimeType,
		Width:           art.Width,
		Height:          art.Height,
		DurationSeconds: art.DurationSeconds,
		ProviderID:      used,
		Title:           in.Title,
		Description:     in.Description,
	}

	report(StageSavingMetadata, 80)
	if err := s.store.Insert(ctx, record); err != nil {
		rollbackErr := s.rollback(ctx, used, record.Keys(), logger)
		return nil, s.failUpload(span, logger, kind, &UploadError{
			Stage:       StageSavingMetadata,
			Provider:    used,
			Err:         err,
			RollbackErr: rollbackErr,
		})
	}

	metrics.RecordUpload(string(kind), used.String(), record.ByteSize, nil)
	logger.Info().
		Str("record_id", record.ID).
		Str("provider", used.String()).
		Str("object_key", record.ObjectKey).
		Int64("bytes", record.ByteSize).
		Msg("media uploaded")

	report(StageComplete, 100)
	return record, nil
}

// UploadMany runs independent uploads with at most workers in flight.
// workers <= 1 processes the inputs strictly one after another.
// Results are returned in input order.
func (s *Service) UploadMany(ctx context.Context, inputs []UploadInput, workers int, progress func(index int, p Progress)) []BulkResult {
	results := make([]BulkResult, len(inputs))
	if workers < 1 {
		workers = 1
	}

	var g errgroup.Group
	g.SetLimit(workers)

	for i, in := range inputs {
		g.Go(func() error {
			var pf ProgressFunc
			if progress != nil {
				pf = func(p Progress) { progress(i, p) }
			}

			record, err := s.UploadMedia(ctx, in, pf)
			results[i] = BulkResult{Record: record, Err: err}
			return nil
		})
	}

	_ = g.Wait()
	return results
}

func validateUpload(in UploadInput) error {
	switch {
	case !validOwnerID(in.OwnerID):
		return fmt.Errorf("%w: invalid owner id %q", ErrInvalidInput, in.OwnerID)
	case len(in.File.Data) == 0:
		return fmt.Errorf("%w: empty file", ErrInvalidInput)
	}
	return nil
}

func (s *Service) selectProvider(ctx context.Context, logger zerolog.Logger) ProviderID {
	candidates := s.registry.AvailableSecondaries()
	if len(candidates) == 0 {
		return Primary
	}

	id, err := s.selector.Select(ctx, candidates)
	if err != nil || !id.Valid() {
		logger.Warn().Err(err).Int("selected", int(id)).Msg("provider selection failed, using primary")
		return Primary
	}

	return id
}

// writeObjects writes every object to one provider in order. It returns the
// slot that served the writes; objects already written before a failure are
// removed again.
func (s *Service) writeObjects(ctx context.Context, id ProviderID, objects []pendingObject, logger zerolog.Logger) (ProviderID, error) {
	p, err := s.registry.Provider(ctx, id)
	if err != nil {
		return id, err
	}

	written := make([]string, 0, len(objects))
	for _, obj := range objects {
		if err := p.PutObject(ctx, obj.key, obj.data, obj.contentType); err != nil {
			if len(written) > 0 {
				s.discard(ctx, p, written, err, logger)
			}
			return p.ID(), err
		}
		written = append(written, obj.key)
	}

	return p.ID(), nil
}

func (s *Service) discard(ctx context.Context, p *Provider, keys []string, cause error, logger zerolog.Logger) {
	if err := p.DeleteObjects(context.WithoutCancel(ctx), keys...); err != nil {
		logger.Error().Err(err).Strs("keys", keys).Msg("failed to remove partially written objects")
		s.reportOrphan(ctx, Orphan{
			ProviderID: p.ID(),
			Keys:       keys,
			Reason:     OrphanPartialWrite,
			Cause:      cause.Error(),
		})
	}
}

// rollback deletes objects whose metadata insert failed.
func (s *Service) rollback(ctx context.Context, id ProviderID, keys []string, logger zerolog.Logger) error {
	ctx = context.WithoutCancel(ctx)

	p, err := s.registry.Provider(ctx, id)
	if err == nil {
		err = p.DeleteObjects(ctx, keys...)
	}
	metrics.RecordRollback(err)

	if err != nil {
		logger.Error().
			Err(err).
			Str("provider", id.String()).
			Strs("keys", keys).
			Msg("rollback after metadata failure did not complete")
		s.reportOrphan(ctx, Orphan{
			ProviderID: id,
			Keys:       keys,
			Reason:     OrphanRollbackFailed,
			Cause:      err.Error(),
		})
		return err
	}

	logger.Info().Str("provider", id.String()).Strs("keys", keys).Msg("rolled back objects after metadata failure")
	return nil
}

func (s *Service) failUpload(span trace.Span, logger zerolog.Logger, kind MediaKind, err *UploadError) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, string(err.Stage))

	provider := ""
	if err.Provider.Valid() {
		provider = err.Provider.String()
	}
	metrics.RecordUpload(string(kind), provider, 0, err)

	logger.Error().Err(err).Str("stage", string(err.Stage)).Msg("upload failed")
	return err
}

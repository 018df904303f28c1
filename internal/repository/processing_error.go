package repository

import (
	"context"
	"time"

	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"

	"github.com/postmottak/mailroom/interfaces"
	"github.com/postmottak/mailroom/internal/models"
	"github.com/postmottak/mailroom/internal/tracing"
)

type processingErrorRepository struct {
	db *gorm.DB
}

func NewProcessingErrorRepository(db *gorm.DB) interfaces.ProcessingErrorRepository {
	return &processingErrorRepository{db: db}
}

func (r *processingErrorRepository) Record(ctx context.Context, perr *models.ProcessingError) (string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "processingErrorRepository.Record")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	// One open row per folder and UID; repeat runs refresh it instead of
	// piling up duplicates.
	existing := &models.ProcessingError{}
	err := r.db.WithContext(ctx).
		Where("folder = ? AND imap_uid = ? AND resolved = ?", perr.Folder, perr.ImapUID, false).
		First(existing).Error
	if err == nil {
		existing.Kind = perr.Kind
		existing.Subject = perr.Subject
		existing.Detail = perr.Detail
		existing.Addresses = perr.Addresses
		existing.CandidateThreadIDs = perr.CandidateThreadIDs
		if err := r.db.WithContext(ctx).Save(existing).Error; err != nil {
			tracing.TraceErr(span, err)
			return "", err
		}
		return existing.ID, nil
	}
	if err != gorm.ErrRecordNotFound {
		tracing.TraceErr(span, err)
		return "", err
	}

	if err := r.db.WithContext(ctx).Create(perr).Error; err != nil {
		tracing.TraceErr(span, err)
		return "", err
	}
	return perr.ID, nil
}

// GetByID returns nil without error when no row has the id.
func (r *processingErrorRepository) GetByID(ctx context.Context, id string) (*models.ProcessingError, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "processingErrorRepository.GetByID")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var perr models.ProcessingError
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&perr).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		tracing.TraceErr(span, err)
		return nil, err
	}
	return &perr, nil
}

func (r *processingErrorRepository) ListUnresolved(ctx context.Context) ([]*models.ProcessingError, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "processingErrorRepository.ListUnresolved")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var errs []*models.ProcessingError
	if err := r.db.WithContext(ctx).
		Where("resolved = ?", false).
		Order("created_at asc").
		Find(&errs).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return errs, nil
}

func (r *processingErrorRepository) CountUnresolved(ctx context.Context) (int64, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "processingErrorRepository.CountUnresolved")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.ProcessingError{}).
		Where("resolved = ?", false).
		Count(&count).Error; err != nil {
		tracing.TraceErr(span, err)
		return 0, err
	}
	return count, nil
}

func (r *processingErrorRepository) Resolve(ctx context.Context, id, threadID string, at time.Time) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "processingErrorRepository.Resolve")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	result := r.db.WithContext(ctx).
		Model(&models.ProcessingError{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"resolved":           true,
			"resolved_at":        at,
			"resolved_thread_id": threadID,
			"updated_at":         time.Now(),
		})
	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return result.Error
	}
	return nil
}

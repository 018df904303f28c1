package repository

import (
	"context"
	"time"

	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"

	"github.com/postmottak/mailroom/interfaces"
	"github.com/postmottak/mailroom/internal/enum"
	"github.com/postmottak/mailroom/internal/models"
	"github.com/postmottak/mailroom/internal/tracing"
)

type folderRunLogRepository struct {
	db *gorm.DB
}

func NewFolderRunLogRepository(db *gorm.DB) interfaces.FolderRunLogRepository {
	return &folderRunLogRepository{db: db}
}

func (r *folderRunLogRepository) StartRun(ctx context.Context, runID, folderName string) (*models.FolderRunLog, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "folderRunLogRepository.StartRun")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	log := &models.FolderRunLog{
		RunID:      runID,
		FolderName: folderName,
		Status:     enum.FolderRunStarted,
		StartedAt:  time.Now(),
	}
	if err := r.db.WithContext(ctx).Create(log).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return log, nil
}

func (r *folderRunLogRepository) FinishRun(ctx context.Context, log *models.FolderRunLog) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "folderRunLogRepository.FinishRun")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	now := time.Now()
	log.FinishedAt = &now
	if err := r.db.WithContext(ctx).Save(log).Error; err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	return nil
}

func (r *folderRunLogRepository) ListByRun(ctx context.Context, runID string) ([]*models.FolderRunLog, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "folderRunLogRepository.ListByRun")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var logs []*models.FolderRunLog
	if err := r.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("started_at asc").
		Find(&logs).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return logs, nil
}

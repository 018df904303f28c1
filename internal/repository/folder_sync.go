package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"

	"github.com/postmottak/mailroom/interfaces"
	"github.com/postmottak/mailroom/internal/models"
	"github.com/postmottak/mailroom/internal/tracing"
)

type folderSyncRepository struct {
	db *gorm.DB
}

func NewFolderSyncRepository(db *gorm.DB) interfaces.FolderSyncRepository {
	return &folderSyncRepository{db: db}
}

// GetSyncState returns nil without error when the folder has no state yet.
func (r *folderSyncRepository) GetSyncState(ctx context.Context, folderName string) (*models.FolderSyncState, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "folderSyncRepository.GetSyncState")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var state models.FolderSyncState
	result := r.db.WithContext(ctx).
		Where("folder_name = ?", folderName).
		First(&state)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		tracing.TraceErr(span, result.Error)
		return nil, fmt.Errorf("failed to get sync state: %w", result.Error)
	}
	return &state, nil
}

func (r *folderSyncRepository) SaveSyncState(ctx context.Context, state *models.FolderSyncState) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "folderSyncRepository.SaveSyncState")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	now := time.Now()
	state.LastCheckedAt = &now

	result := r.db.WithContext(ctx).
		Model(&models.FolderSyncState{}).
		Where("folder_name = ?", state.FolderName).
		Updates(map[string]interface{}{
			"last_uid":        state.LastUID,
			"last_checked_at": state.LastCheckedAt,
			"updated_at":      now,
		})

	if result.RowsAffected == 0 {
		result = r.db.WithContext(ctx).Create(state)
	}

	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return fmt.Errorf("failed to save sync state: %w", result.Error)
	}
	return nil
}

func (r *folderSyncRepository) DeleteSyncState(ctx context.Context, folderName string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "folderSyncRepository.DeleteSyncState")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	result := r.db.WithContext(ctx).
		Where("folder_name = ?", folderName).
		Delete(&models.FolderSyncState{})
	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return fmt.Errorf("failed to delete sync state: %w", result.Error)
	}
	return nil
}

func (r *folderSyncRepository) GetAllSyncStates(ctx context.Context) (map[string]uint32, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "folderSyncRepository.GetAllSyncStates")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var states []models.FolderSyncState
	if err := r.db.WithContext(ctx).Find(&states).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, fmt.Errorf("failed to get all sync states: %w", err)
	}

	result := make(map[string]uint32, len(states))
	for _, state := range states {
		result[state.FolderName] = state.LastUID
	}
	return result, nil
}

package repository

import (
	"context"
	"errors"

	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"

	"github.com/postmottak/mailroom/interfaces"
	"github.com/postmottak/mailroom/internal/models"
	"github.com/postmottak/mailroom/internal/tracing"
)

type threadRepository struct {
	db *gorm.DB
}

func NewThreadRepository(db *gorm.DB) interfaces.ThreadRepository {
	return &threadRepository{db: db}
}

func (r *threadRepository) Create(ctx context.Context, thread *models.Thread) (string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "threadRepository.Create")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	if err := r.db.WithContext(ctx).Create(thread).Error; err != nil {
		tracing.TraceErr(span, err)
		return "", err
	}
	return thread.ID, nil
}

func (r *threadRepository) GetByID(ctx context.Context, id string) (*models.Thread, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "threadRepository.GetByID")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var thread models.Thread
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&thread).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, err)
		return nil, err
	}
	return &thread, nil
}

// GetActiveThreads returns all non-archived threads, participants included.
func (r *threadRepository) GetActiveThreads(ctx context.Context) ([]*models.Thread, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "threadRepository.GetActiveThreads")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var threads []*models.Thread
	if err := r.db.WithContext(ctx).
		Where("archived = ?", false).
		Order("created_at asc").
		Find(&threads).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return threads, nil
}

func (r *threadRepository) GetAllThreads(ctx context.Context) ([]*models.Thread, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "threadRepository.GetAllThreads")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var threads []*models.Thread
	if err := r.db.WithContext(ctx).Order("created_at asc").Find(&threads).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return threads, nil
}

func (r *threadRepository) Update(ctx context.Context, thread *models.Thread) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "threadRepository.Update")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	if err := r.db.WithContext(ctx).Save(thread).Error; err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	return nil
}

func (r *threadRepository) MarkArchived(ctx context.Context, id string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "threadRepository.MarkArchived")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	result := r.db.WithContext(ctx).
		Model(&models.Thread{}).
		Where("id = ?", id).
		Update("archived", true)
	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return result.Error
	}
	return nil
}

package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"

	"github.com/postmottak/mailroom/interfaces"
	"github.com/postmottak/mailroom/internal/models"
	"github.com/postmottak/mailroom/internal/tracing"
)

type threadMappingRepository struct {
	db *gorm.DB
}

func NewThreadMappingRepository(db *gorm.DB) interfaces.ThreadMappingRepository {
	return &threadMappingRepository{db: db}
}

func (r *threadMappingRepository) Create(ctx context.Context, mapping *models.ThreadMapping) (string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "threadMappingRepository.Create")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	mapping.EmailAddress = strings.ToLower(strings.TrimSpace(mapping.EmailAddress))

	if err := r.db.WithContext(ctx).Create(mapping).Error; err != nil {
		tracing.TraceErr(span, err)
		return "", err
	}
	return mapping.ID, nil
}

func (r *threadMappingRepository) GetByAddress(ctx context.Context, emailAddress string) (*models.ThreadMapping, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "threadMappingRepository.GetByAddress")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var mapping models.ThreadMapping
	if err := r.db.WithContext(ctx).
		Where("email_address = ?", strings.ToLower(strings.TrimSpace(emailAddress))).
		First(&mapping).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, err)
		return nil, err
	}
	return &mapping, nil
}

func (r *threadMappingRepository) GetAllMappings(ctx context.Context) (map[string]string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "threadMappingRepository.GetAllMappings")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var mappings []models.ThreadMapping
	if err := r.db.WithContext(ctx).Find(&mappings).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	result := make(map[string]string, len(mappings))
	for _, m := range mappings {
		result[m.EmailAddress] = m.ThreadID
	}
	return result, nil
}

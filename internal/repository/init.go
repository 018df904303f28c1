package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/postmottak/mailroom/interfaces"
	"github.com/postmottak/mailroom/internal/database"
	"github.com/postmottak/mailroom/internal/models"
)

type Repositories struct {
	ThreadRepository          interfaces.ThreadRepository
	EmailRepository           interfaces.EmailRepository
	EmailAttachmentRepository interfaces.EmailAttachmentRepository
	FolderSyncRepository      interfaces.FolderSyncRepository
	FolderRunLogRepository    interfaces.FolderRunLogRepository
	ProcessingErrorRepository interfaces.ProcessingErrorRepository
	ThreadMappingRepository   interfaces.ThreadMappingRepository
}

func InitRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		ThreadRepository:          NewThreadRepository(db),
		EmailRepository:           NewEmailRepository(db),
		EmailAttachmentRepository: NewEmailAttachmentRepository(db),
		FolderSyncRepository:      NewFolderSyncRepository(db),
		FolderRunLogRepository:    NewFolderRunLogRepository(db),
		ProcessingErrorRepository: NewProcessingErrorRepository(db),
		ThreadMappingRepository:   NewThreadMappingRepository(db),
	}
}

func MigrateDB(dbConfig *database.DatabaseConfig, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	sqlDB.SetMaxOpenConns(5)

	err = db.AutoMigrate(
		&models.Thread{},
		&models.Email{},
		&models.EmailAttachment{},
		&models.FolderSyncState{},
		&models.FolderRunLog{},
		&models.ProcessingError{},
		&models.ThreadMapping{},
	)

	sqlDB.SetMaxIdleConns(dbConfig.MaxIdleConn)
	sqlDB.SetMaxOpenConns(dbConfig.MaxConn)
	sqlDB.SetConnMaxLifetime(time.Duration(dbConfig.ConnMaxLifetime) * time.Minute)

	return err
}

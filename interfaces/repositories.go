package interfaces

import (
	"context"
	"time"

	"github.com/postmottak/mailroom/internal/models"
)

type ThreadRepository interface {
	Create(ctx context.Context, thread *models.Thread) (string, error)
	GetByID(ctx context.Context, id string) (*models.Thread, error)
	GetActiveThreads(ctx context.Context) ([]*models.Thread, error)
	GetAllThreads(ctx context.Context) ([]*models.Thread, error)
	Update(ctx context.Context, thread *models.Thread) error
	MarkArchived(ctx context.Context, id string) error
}

type EmailRepository interface {
	Create(ctx context.Context, email *models.Email) (string, error)
	GetByID(ctx context.Context, id string) (*models.Email, error)
	GetByMessageID(ctx context.Context, messageID string) (*models.Email, error)
	GetByUID(ctx context.Context, folder string, uid uint32) (*models.Email, error)
	ListByThread(ctx context.Context, threadID string) ([]*models.Email, error)
}

type EmailAttachmentRepository interface {
	Create(ctx context.Context, attachment *models.EmailAttachment) (string, error)
	GetByID(ctx context.Context, id string) (*models.EmailAttachment, error)
	ListByEmail(ctx context.Context, emailID string) ([]*models.EmailAttachment, error)
}

type FolderSyncRepository interface {
	GetSyncState(ctx context.Context, folderName string) (*models.FolderSyncState, error)
	SaveSyncState(ctx context.Context, state *models.FolderSyncState) error
	DeleteSyncState(ctx context.Context, folderName string) error
	GetAllSyncStates(ctx context.Context) (map[string]uint32, error)
}

type FolderRunLogRepository interface {
	StartRun(ctx context.Context, runID, folderName string) (*models.FolderRunLog, error)
	FinishRun(ctx context.Context, log *models.FolderRunLog) error
	ListByRun(ctx context.Context, runID string) ([]*models.FolderRunLog, error)
}

type ProcessingErrorRepository interface {
	Record(ctx context.Context, perr *models.ProcessingError) (string, error)
	GetByID(ctx context.Context, id string) (*models.ProcessingError, error)
	ListUnresolved(ctx context.Context) ([]*models.ProcessingError, error)
	CountUnresolved(ctx context.Context) (int64, error)
	Resolve(ctx context.Context, id, threadID string, at time.Time) error
}

type ThreadMappingRepository interface {
	Create(ctx context.Context, mapping *models.ThreadMapping) (string, error)
	GetByAddress(ctx context.Context, emailAddress string) (*models.ThreadMapping, error)
	GetAllMappings(ctx context.Context) (map[string]string, error)
}

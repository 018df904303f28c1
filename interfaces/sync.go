package interfaces

import (
	"context"
	"time"

	"github.com/postmottak/mailroom/internal/models"
)

// SyncService runs one complete mailbox pass: folder refresh, inbox routing,
// per-thread enumeration, decode, persist, archive. It also serves lazy
// attachment reads against the mailbox.
type SyncService interface {
	RunOnce(ctx context.Context) (*RunReport, error)

	// FetchAttachmentContent fetches and decodes the bytes of one stored
	// attachment. Content is never persisted; every read goes back to the
	// mailbox using the recorded folder, UID and body section.
	FetchAttachmentContent(ctx context.Context, attachmentID string) (*models.EmailAttachment, []byte, error)
}

// RunReport summarizes one sync run.
type RunReport struct {
	RunID           string
	StartedAt       time.Time
	FinishedAt      time.Time
	FoldersChecked  int
	FoldersSkipped  int
	MessagesSeen    int
	MessagesStored  int
	MessagesRouted  int
	MessagesFailed  int
	FoldersCreated  int
	MessagesMoved   int
	ThreadsArchived int
}

func (r *RunReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

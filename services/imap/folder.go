package imap

import (
	"context"
	"strings"

	goimap "github.com/emersion/go-imap"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/postmottak/mailroom/interfaces"
	"github.com/postmottak/mailroom/internal/logger"
	"github.com/postmottak/mailroom/internal/models"
	"github.com/postmottak/mailroom/internal/tracing"
)

// FolderManager caches the server's folder list for one run and keeps it in
// step with every create, subscribe and rename it performs. The cache makes
// ensure operations idempotent without a round trip per call.
type FolderManager struct {
	log    logger.Logger
	client interfaces.ImapClient

	existingFolders   map[string]bool
	subscribedFolders map[string]bool
}

func NewFolderManager(log logger.Logger, client interfaces.ImapClient) *FolderManager {
	return &FolderManager{
		log:    log,
		client: client,
	}
}

// Refresh lists all folders and subscriptions from the server. Called once
// at the start of a run; the cache carries the rest.
func (fm *FolderManager) Refresh(ctx context.Context) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "FolderManager.Refresh")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	existing, err := fm.listFolders(fm.client.List)
	if err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrap(err, "listing folders")
	}
	subscribed, err := fm.listFolders(fm.client.Lsub)
	if err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrap(err, "listing subscribed folders")
	}

	fm.existingFolders = existing
	fm.subscribedFolders = subscribed
	span.SetTag("folders", len(existing))
	return nil
}

func (fm *FolderManager) listFolders(list func(ref, name string, ch chan *goimap.MailboxInfo) error) (map[string]bool, error) {
	mailboxes := make(chan *goimap.MailboxInfo, 32)
	done := make(chan error, 1)
	go func() {
		done <- list("", "*", mailboxes)
	}()

	folders := make(map[string]bool)
	for mbox := range mailboxes {
		folders[mbox.Name] = true
	}
	if err := <-done; err != nil {
		return nil, err
	}
	return folders, nil
}

// EnsureFolderExists creates the folder unless the cache already has it.
// Safe to call any number of times in a run.
func (fm *FolderManager) EnsureFolderExists(ctx context.Context, folderName string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "FolderManager.EnsureFolderExists")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag(tracing.SpanTagFolder, folderName)

	if err := fm.requireRefreshed(); err != nil {
		return err
	}
	if fm.existingFolders[folderName] {
		return nil
	}

	fm.log.Debugf("creating folder %s", folderName)
	if err := fm.client.Create(folderName); err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrapf(err, "creating folder %s", folderName)
	}
	fm.existingFolders[folderName] = true
	return nil
}

// EnsureFolderSubscribed subscribes the folder unless already subscribed.
func (fm *FolderManager) EnsureFolderSubscribed(ctx context.Context, folderName string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "FolderManager.EnsureFolderSubscribed")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag(tracing.SpanTagFolder, folderName)

	if err := fm.requireRefreshed(); err != nil {
		return err
	}
	if fm.subscribedFolders[folderName] {
		return nil
	}

	fm.log.Debugf("subscribing to folder %s", folderName)
	if err := fm.client.Subscribe(folderName); err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrapf(err, "subscribing to %s", folderName)
	}
	fm.subscribedFolders[folderName] = true
	return nil
}

// CreateThreadFolders ensures the archive root plus one folder per thread
// exist and are subscribed. Returns the full list of required folders.
func (fm *FolderManager) CreateThreadFolders(ctx context.Context, threads []*models.Thread) ([]string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "FolderManager.CreateThreadFolders")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	required := []string{models.ArchiveFolder}
	for _, thread := range threads {
		required = append(required, thread.EmailFolder())
	}

	for _, folder := range required {
		if err := fm.EnsureFolderExists(ctx, folder); err != nil {
			tracing.TraceErr(span, err)
			return nil, err
		}
		if err := fm.EnsureFolderSubscribed(ctx, folder); err != nil {
			tracing.TraceErr(span, err)
			return nil, err
		}
	}
	span.SetTag("count", len(required))
	return required, nil
}

// RenameFolder renames on the server and updates the cache.
func (fm *FolderManager) RenameFolder(ctx context.Context, oldName, newName string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "FolderManager.RenameFolder")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("from", oldName)
	span.SetTag("to", newName)

	if err := fm.requireRefreshed(); err != nil {
		return err
	}

	if err := fm.client.Rename(oldName, newName); err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrapf(err, "renaming %s to %s", oldName, newName)
	}

	if fm.existingFolders[oldName] {
		delete(fm.existingFolders, oldName)
		fm.existingFolders[newName] = true
	}
	if fm.subscribedFolders[oldName] {
		delete(fm.subscribedFolders, oldName)
		fm.subscribedFolders[newName] = true
	}
	return nil
}

// ArchiveFolder moves a thread folder under the archive namespace. Folders
// already under it are left alone.
func (fm *FolderManager) ArchiveFolder(ctx context.Context, folderName string) error {
	if strings.HasPrefix(folderName, models.ArchiveFolderPrefix) {
		return nil
	}
	archivedName := strings.Replace(folderName, models.InboxFolderPrefix, models.ArchiveFolderPrefix, 1)
	return fm.RenameFolder(ctx, folderName, archivedName)
}

// ArchiveThreadFolder archives the live folder of an archived thread when
// it still exists under INBOX.
func (fm *FolderManager) ArchiveThreadFolder(ctx context.Context, thread *models.Thread) error {
	if !thread.Archived {
		return nil
	}
	if err := fm.requireRefreshed(); err != nil {
		return err
	}

	title := strings.TrimPrefix(thread.EmailFolder(), models.ArchiveFolderPrefix)
	liveFolder := models.InboxFolderPrefix + title
	if !fm.existingFolders[liveFolder] {
		return nil
	}
	return fm.ArchiveFolder(ctx, liveFolder)
}

// ExistingFolders returns a copy of the cached folder list.
func (fm *FolderManager) ExistingFolders() []string {
	folders := make([]string, 0, len(fm.existingFolders))
	for name := range fm.existingFolders {
		folders = append(folders, name)
	}
	return folders
}

func (fm *FolderManager) requireRefreshed() error {
	if fm.existingFolders == nil {
		return errors.New("folder manager not initialized, call Refresh first")
	}
	return nil
}

package imap

import (
	"context"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/postmottak/mailroom/config"
	mailroom_errors "github.com/postmottak/mailroom/errors"
	"github.com/postmottak/mailroom/interfaces"
	"github.com/postmottak/mailroom/internal/enum"
	"github.com/postmottak/mailroom/internal/logger"
	"github.com/postmottak/mailroom/internal/models"
	"github.com/postmottak/mailroom/internal/repository"
	"github.com/postmottak/mailroom/internal/tracing"
	"github.com/postmottak/mailroom/internal/utils"
	"github.com/postmottak/mailroom/services/attachment_handler"
	"github.com/postmottak/mailroom/services/email_processor"
	"github.com/postmottak/mailroom/services/header_repair"
)

// SyncService runs the complete mailbox pass: ensure thread folders, route
// the inbox and sent mail into them, then walk each thread folder decoding
// and persisting what is new. Runs are single-threaded start to finish; a
// failed run leaves every watermark where it was.
type SyncService struct {
	log       logger.Logger
	cfg       *config.ImapConfig
	syncCfg   *config.SyncConfig
	dialer      *Dialer
	repos       *repository.Repositories
	processor   *email_processor.EmailProcessor
	router      *email_processor.ThreadRouter
	attachments *attachment_handler.AttachmentHandler
	archive     interfaces.RawArchive
}

func NewSyncService(
	log logger.Logger,
	cfg *config.ImapConfig,
	syncCfg *config.SyncConfig,
	repos *repository.Repositories,
	publisher interfaces.EventPublisher,
	archive interfaces.RawArchive,
) interfaces.SyncService {
	return &SyncService{
		log:     log,
		cfg:     cfg,
		syncCfg: syncCfg,
		dialer:  NewDialer(log, cfg),
		repos:   repos,
		processor: email_processor.NewEmailProcessor(
			log, repos.EmailRepository, repos.EmailAttachmentRepository, publisher, cfg.MyEmail,
		),
		router: email_processor.NewThreadRouter(
			repos.ThreadRepository, repos.ThreadMappingRepository, cfg.MyEmail,
		),
		attachments: attachment_handler.NewAttachmentHandler(),
		archive:     archive,
	}
}

// RunOnce performs one full synchronization pass.
func (s *SyncService) RunOnce(ctx context.Context) (*interfaces.RunReport, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "SyncService.RunOnce")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	report := &interfaces.RunReport{
		RunID:     utils.GenerateNanoIDWithPrefix("run", 16),
		StartedAt: time.Now(),
	}
	span.SetTag("run.id", report.RunID)
	s.log.Infof("starting sync run %s", report.RunID)

	client, err := s.dialer.Connect(ctx)
	if err != nil {
		tracing.TraceErr(span, err)
		return report, errors.Wrap(err, "connecting to mailbox")
	}
	conn := NewMailboxConnection(s.log, client, s.cfg.ExpungeOnClose)
	defer func() {
		report.FinishedAt = time.Now()
		if cerr := conn.Close(context.Background()); cerr != nil {
			s.log.Warnf("closing connection: %v", cerr)
		}
		s.log.Infof("sync run %s finished in %v: %d folders, %d messages stored, %d failed",
			report.RunID, report.Duration(), report.FoldersChecked, report.MessagesStored, report.MessagesFailed)
	}()

	folders := NewFolderManager(s.log, client)
	if err := folders.Refresh(ctx); err != nil {
		tracing.TraceErr(span, err)
		return report, err
	}

	threads, err := s.repos.ThreadRepository.GetAllThreads(ctx)
	if err != nil {
		tracing.TraceErr(span, err)
		return report, err
	}

	var activeThreads []*models.Thread
	for _, t := range threads {
		if !t.Archived {
			activeThreads = append(activeThreads, t)
		}
	}

	required, err := folders.CreateThreadFolders(ctx, activeThreads)
	if err != nil {
		tracing.TraceErr(span, err)
		return report, err
	}
	report.FoldersCreated = len(required)

	for _, t := range threads {
		if !t.Archived {
			continue
		}
		if err := folders.ArchiveThreadFolder(ctx, t); err != nil {
			tracing.TraceErr(span, err)
			return report, err
		}
		report.ThreadsArchived++
	}

	// Route loose mail out of the inbox and sent folder before walking the
	// thread folders, so this run already sees the moved messages there.
	for _, folder := range []string{models.InboxFolder, s.cfg.SentFolder} {
		if folder == "" {
			continue
		}
		if err := s.routeFolder(ctx, conn, folders, threads, folder, report); err != nil {
			tracing.TraceErr(span, err)
			return report, err
		}
	}

	for _, thread := range activeThreads {
		if err := s.syncThreadFolder(ctx, conn, thread, report); err != nil {
			tracing.TraceErr(span, err)
			return report, err
		}
	}

	return report, nil
}

// routeFolder walks one source folder and moves every routable message into
// its thread folder. Unroutable messages stay put with a processing error
// recorded; the next run sees them again.
func (s *SyncService) routeFolder(ctx context.Context, conn *MailboxConnection, folders *FolderManager, threads []*models.Thread, folder string, report *interfaces.RunReport) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "SyncService.routeFolder")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag(tracing.SpanTagFolder, folder)

	runLog, err := s.repos.FolderRunLogRepository.StartRun(ctx, report.RunID, folder)
	if err != nil {
		return err
	}

	if _, err := conn.Open(ctx, folder); err != nil {
		s.finishRunLog(ctx, runLog, enum.FolderRunError, err.Error())
		return err
	}

	enumerator := NewEnumerator(s.log, conn)
	uids, err := enumerator.ListMessages(ctx, 0)
	if err != nil {
		s.finishRunLog(ctx, runLog, enum.FolderRunError, err.Error())
		return err
	}
	runLog.MessagesSeen = len(uids)
	report.MessagesSeen += len(uids)

	threadFolders := make(map[string]string, len(threads))
	for _, t := range threads {
		threadFolders[t.ID] = t.EmailFolder()
	}

	for _, uid := range uids {
		s.log.DebugTimed("routing message %d in %s", uid, folder)

		msg, err := enumerator.BuildRawMessage(ctx, uid)
		if err != nil {
			runLog.MessagesFailed++
			report.MessagesFailed++
			s.recordDecodeError(ctx, folder, uid, err)
			continue
		}

		decision, err := s.router.Route(ctx, msg)
		if err != nil {
			return err
		}

		switch decision.Outcome {
		case enum.RoutingRouted:
			dest, ok := threadFolders[decision.ThreadID]
			if !ok {
				runLog.MessagesFailed++
				report.MessagesFailed++
				continue
			}
			if err := folders.EnsureFolderExists(ctx, dest); err != nil {
				return err
			}
			if err := conn.Move(ctx, uid, dest); err != nil {
				return err
			}
			runLog.MessagesProcessed++
			report.MessagesRouted++
			report.MessagesMoved++
		case enum.RoutingNoMatch:
			s.recordRoutingError(ctx, msg, decision, enum.ProcessingErrorRoutingNoMatch)
			runLog.MessagesFailed++
			report.MessagesFailed++
		case enum.RoutingAmbiguous:
			s.recordRoutingError(ctx, msg, decision, enum.ProcessingErrorRoutingAmbiguous)
			runLog.MessagesFailed++
			report.MessagesFailed++
		}
	}

	report.FoldersChecked++
	if runLog.MessagesFailed > 0 {
		s.finishRunLog(ctx, runLog, enum.FolderRunError, "some messages could not be routed")
	} else {
		s.finishRunLog(ctx, runLog, enum.FolderRunSuccess, "")
	}
	return nil
}

// syncThreadFolder decodes and persists what is new in one thread folder.
// The watermark moves only after the whole folder succeeds.
func (s *SyncService) syncThreadFolder(ctx context.Context, conn *MailboxConnection, thread *models.Thread, report *interfaces.RunReport) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "SyncService.syncThreadFolder")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag(tracing.SpanTagThreadID, thread.ID)

	folder := thread.EmailFolder()
	span.SetTag(tracing.SpanTagFolder, folder)

	state, err := s.repos.FolderSyncRepository.GetSyncState(ctx, folder)
	if err != nil {
		return err
	}
	var lastUID uint32
	if state != nil {
		lastUID = state.LastUID
	}

	recheck := time.Duration(s.syncCfg.RecheckIntervalMin) * time.Minute
	fresh := state != nil && !state.Stale(recheck, time.Now())

	runLog, err := s.repos.FolderRunLogRepository.StartRun(ctx, report.RunID, folder)
	if err != nil {
		return err
	}

	if _, err := conn.Open(ctx, folder); err != nil {
		s.finishRunLog(ctx, runLog, enum.FolderRunError, err.Error())
		return err
	}

	enumerator := NewEnumerator(s.log, conn)
	uids, err := enumerator.ListMessages(ctx, lastUID)
	if err != nil {
		s.finishRunLog(ctx, runLog, enum.FolderRunError, err.Error())
		return err
	}
	if len(uids) == 0 && fresh {
		report.FoldersSkipped++
		s.finishRunLog(ctx, runLog, enum.FolderRunInfo, "up to date")
		return nil
	}
	runLog.MessagesSeen = len(uids)
	report.MessagesSeen += len(uids)

	maxUID := lastUID
	failed := 0
	for _, uid := range uids {
		s.log.DebugTimed("processing message %d in %s", uid, folder)

		msg, err := enumerator.BuildRawMessage(ctx, uid)
		if err != nil {
			failed++
			runLog.MessagesFailed++
			report.MessagesFailed++
			s.recordDecodeError(ctx, folder, uid, err)
			continue
		}

		if s.archive != nil {
			if err := s.archive.Store(ctx, folder, uid, []byte(msg.Raw)); err != nil {
				s.log.Warnf("archiving raw message %d in %s: %v", uid, folder, err)
			}
		}

		if _, err := s.processor.Process(ctx, msg, thread.ID); err != nil {
			failed++
			runLog.MessagesFailed++
			report.MessagesFailed++
			s.recordDecodeError(ctx, folder, uid, err)
			continue
		}
		runLog.MessagesProcessed++
		report.MessagesStored++
		if uid > maxUID {
			maxUID = uid
		}
	}

	report.FoldersChecked++

	// A failed message keeps the watermark back so it is retried next run.
	if failed == 0 {
		if err := s.repos.FolderSyncRepository.SaveSyncState(ctx, &models.FolderSyncState{
			FolderName: folder,
			LastUID:    maxUID,
		}); err != nil {
			s.finishRunLog(ctx, runLog, enum.FolderRunError, err.Error())
			return err
		}
		s.finishRunLog(ctx, runLog, enum.FolderRunSuccess, "")
	} else {
		s.finishRunLog(ctx, runLog, enum.FolderRunError, "some messages failed, watermark not advanced")
	}
	return nil
}

func (s *SyncService) recordRoutingError(ctx context.Context, msg *models.RawMessage, decision models.RoutingDecision, kind enum.ProcessingErrorKind) {
	subject := header_repair.DecodeHeaderTextLenient(msg.Subject)
	perr := &models.ProcessingError{
		Kind:               kind,
		Folder:             msg.Folder,
		ImapUID:            msg.UID,
		Subject:            subject,
		Addresses:          decision.Addresses,
		CandidateThreadIDs: decision.Candidates,
	}
	if _, err := s.repos.ProcessingErrorRepository.Record(ctx, perr); err != nil {
		s.log.Errorf("recording routing error for %d in %s: %v", msg.UID, msg.Folder, err)
	}
}

func (s *SyncService) recordDecodeError(ctx context.Context, folder string, uid uint32, cause error) {
	perr := &models.ProcessingError{
		Kind:    enum.ProcessingErrorMessageDecode,
		Folder:  folder,
		ImapUID: uid,
		Detail:  cause.Error(),
	}
	if errors.Is(cause, mailroom_errors.ErrUnsupportedEncoding) {
		perr.Kind = enum.ProcessingErrorUnsupportedCTE
	}
	if _, err := s.repos.ProcessingErrorRepository.Record(ctx, perr); err != nil {
		s.log.Errorf("recording decode error for %d in %s: %v", uid, folder, err)
	}
}

func (s *SyncService) finishRunLog(ctx context.Context, runLog *models.FolderRunLog, status enum.FolderRunStatus, message string) {
	runLog.Status = status
	runLog.Message = message
	if err := s.repos.FolderRunLogRepository.FinishRun(ctx, runLog); err != nil {
		s.log.Errorf("finishing folder run log for %s: %v", runLog.FolderName, err)
	}
}

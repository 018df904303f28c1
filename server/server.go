package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/postmottak/mailroom/config"
	"github.com/postmottak/mailroom/interfaces"
	"github.com/postmottak/mailroom/internal/logger"
	"github.com/postmottak/mailroom/internal/models"
	"github.com/postmottak/mailroom/internal/repository"
	"github.com/postmottak/mailroom/internal/tracing"
	"github.com/postmottak/mailroom/services/events"
	"github.com/postmottak/mailroom/services/imap"
	"github.com/postmottak/mailroom/services/storage"
)

type Server struct {
	config       *config.Config
	log          logger.Logger
	httpServer   *http.Server
	router       *gin.Engine
	repositories *repository.Repositories
	syncService  interfaces.SyncService
	publisher    interfaces.EventPublisher
	scheduler    *cron.Cron
	tracerCloser io.Closer

	runMutex   sync.Mutex
	lastReport *interfaces.RunReport
	lastError  string
}

func NewServer(cfg *config.Config, db *gorm.DB) (*Server, error) {
	appLogger := logger.NewAppLogger(cfg.Logger)
	appLogger.InitLogger()

	tracer, closer, err := tracing.NewJaegerTracer(cfg.Tracing, appLogger)
	if err != nil {
		return nil, fmt.Errorf("could not initialize jaeger tracer: %w", err)
	}
	opentracing.SetGlobalTracer(tracer)

	repos := repository.InitRepositories(db)

	var publisher interfaces.EventPublisher
	if cfg.AppConfig.RabbitMQURL != "" {
		publisher, err = events.NewRabbitMQPublisher(cfg.AppConfig.RabbitMQURL, appLogger, nil)
		if err != nil {
			return nil, fmt.Errorf("could not initialize event publisher: %w", err)
		}
	}

	var archive interfaces.RawArchive
	if cfg.ArchiveConfig.Enabled {
		archive = storage.NewS3RawArchive(cfg.ArchiveConfig)
	}

	syncService := imap.NewSyncService(appLogger, cfg.ImapConfig, cfg.SyncConfig, repos, publisher, archive)

	gin.SetMode(gin.ReleaseMode)
	router := gin.Default()

	return &Server{
		config:       cfg,
		log:          appLogger,
		router:       router,
		repositories: repos,
		syncService:  syncService,
		publisher:    publisher,
		tracerCloser: closer,
		httpServer: &http.Server{
			Addr:    ":" + cfg.AppConfig.APIPort,
			Handler: router,
		},
	}, nil
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	s.router.GET("/status", func(c *gin.Context) {
		s.runMutex.Lock()
		report := s.lastReport
		lastError := s.lastError
		s.runMutex.Unlock()

		unresolved, err := s.repositories.ProcessingErrorRepository.CountUnresolved(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		body := gin.H{
			"unresolvedErrors": unresolved,
			"lastError":        lastError,
		}
		if report != nil {
			body["lastRun"] = gin.H{
				"runId":          report.RunID,
				"startedAt":      report.StartedAt,
				"finishedAt":     report.FinishedAt,
				"foldersChecked": report.FoldersChecked,
				"foldersSkipped": report.FoldersSkipped,
				"messagesSeen":   report.MessagesSeen,
				"messagesStored": report.MessagesStored,
				"messagesRouted": report.MessagesRouted,
				"messagesFailed": report.MessagesFailed,
			}
		}
		c.JSON(http.StatusOK, body)
	})

	s.router.POST("/sync", func(c *gin.Context) {
		if !s.checkAPIKey(c) {
			return
		}
		go s.wrapGoroutine("manual_sync", func() {
			s.runSync(context.Background())
		})
		c.JSON(http.StatusAccepted, gin.H{"status": "sync started"})
	})

	s.router.GET("/attachments/:id", s.getAttachmentContent)

	s.router.GET("/errors", s.listErrors)
	s.router.POST("/errors/:id/resolve", s.resolveError)
}

func (s *Server) checkAPIKey(c *gin.Context) bool {
	apiKey := c.GetHeader("X-API-KEY")
	if s.config.AppConfig.APIKey != "" && apiKey != s.config.AppConfig.APIKey {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid api key"})
		return false
	}
	return true
}

// getAttachmentContent streams one attachment's decoded bytes. Content is
// fetched from the mailbox on every request, not from the database.
func (s *Server) getAttachmentContent(c *gin.Context) {
	if !s.checkAPIKey(c) {
		return
	}

	att, content, err := s.syncService.FetchAttachmentContent(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+att.Filename+`"`)
	c.Data(http.StatusOK, att.MIMEType, content)
}

func (s *Server) listErrors(c *gin.Context) {
	if !s.checkAPIKey(c) {
		return
	}

	unresolved, err := s.repositories.ProcessingErrorRepository.ListUnresolved(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"errors": unresolved})
}

type resolveErrorRequest struct {
	ThreadID     string `json:"threadId" binding:"required"`
	EmailAddress string `json:"emailAddress" binding:"required"`
}

// resolveError closes one processing error and pins the chosen address to
// the chosen thread, so the next run routes the stuck message there.
func (s *Server) resolveError(c *gin.Context) {
	if !s.checkAPIKey(c) {
		return
	}

	var req resolveErrorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	perr, err := s.repositories.ProcessingErrorRepository.GetByID(ctx, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if perr == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "processing error not found"})
		return
	}
	if perr.Resolved {
		c.JSON(http.StatusConflict, gin.H{"error": "processing error already resolved"})
		return
	}

	thread, err := s.repositories.ThreadRepository.GetByID(ctx, req.ThreadID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if thread == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "thread not found"})
		return
	}

	mapping := &models.ThreadMapping{
		EmailAddress: req.EmailAddress,
		ThreadID:     req.ThreadID,
	}
	if _, err := s.repositories.ThreadMappingRepository.Create(ctx, mapping); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := s.repositories.ProcessingErrorRepository.Resolve(ctx, perr.ID, req.ThreadID, time.Now()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":       "resolved",
		"threadId":     req.ThreadID,
		"emailAddress": mapping.EmailAddress,
	})
}

// runSync executes one pass, serialized so overlapping triggers cannot run
// two sessions against the mailbox at once.
func (s *Server) runSync(ctx context.Context) {
	s.runMutex.Lock()
	defer s.runMutex.Unlock()

	report, err := s.syncService.RunOnce(ctx)
	s.lastReport = report
	if err != nil {
		s.lastError = err.Error()
		s.log.Errorf("sync run failed: %v", err)
		return
	}
	s.lastError = ""
}

func (s *Server) recoverWithJaeger(name string) {
	if r := recover(); r != nil {
		span := opentracing.GlobalTracer().StartSpan(fmt.Sprintf("panic.%s", name))
		defer span.Finish()

		ext.Error.Set(span, true)
		span.LogKV(
			"event", "panic",
			"process", name,
			"error", fmt.Sprintf("%v", r),
			"stack", string(debug.Stack()),
		)

		s.log.Errorf("panic in %s: %v\n%s", name, r, debug.Stack())
	}
}

func (s *Server) wrapGoroutine(name string, fn func()) {
	defer s.recoverWithJaeger(name)
	fn()
}

func (s *Server) Run() error {
	s.registerRoutes()

	if s.config.SyncConfig.Schedule != "" {
		s.scheduler = cron.New()
		_, err := s.scheduler.AddFunc(s.config.SyncConfig.Schedule, func() {
			s.wrapGoroutine("scheduled_sync", func() {
				s.runSync(context.Background())
			})
		})
		if err != nil {
			return fmt.Errorf("invalid sync schedule %q: %w", s.config.SyncConfig.Schedule, err)
		}
		s.scheduler.Start()
		s.log.Infof("sync scheduled: %s", s.config.SyncConfig.Schedule)
	}

	go s.wrapGoroutine("http_server", func() {
		s.log.Infof("starting HTTP server on :%s", s.config.AppConfig.APIPort)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Errorf("HTTP server error: %v", err)
		}
	})

	return s.waitForShutdown()
}

func (s *Server) waitForShutdown() error {
	defer s.recoverWithJaeger("shutdown")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	s.log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if s.scheduler != nil {
		cronCtx := s.scheduler.Stop()
		select {
		case <-cronCtx.Done():
		case <-time.After(10 * time.Second):
			s.log.Warn("scheduled sync did not finish in time")
		}
	}

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.log.Errorf("HTTP server shutdown error: %v", err)
	}

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			s.log.Errorf("event publisher close error: %v", err)
		}
	}

	if s.tracerCloser != nil {
		s.tracerCloser.Close()
	}

	return nil
}

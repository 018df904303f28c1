package imap

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/emersion/go-imap/client"
	"github.com/opentracing/opentracing-go"

	"github.com/postmottak/mailroom/config"
	"github.com/postmottak/mailroom/internal/logger"
	"github.com/postmottak/mailroom/internal/tracing"
)

// Dialer opens authenticated IMAP sessions with bounded retry. Retries only
// fire on errors that look like a broken or refused connection; protocol
// errors surface immediately.
type Dialer struct {
	log logger.Logger
	cfg *config.ImapConfig
}

func NewDialer(log logger.Logger, cfg *config.ImapConfig) *Dialer {
	return &Dialer{log: log, cfg: cfg}
}

// Connect dials, checks capabilities and logs in, retrying transient
// failures with exponential backoff up to the configured attempt cap.
func (d *Dialer) Connect(ctx context.Context) (*client.Client, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "Dialer.Connect")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("server", d.cfg.Server)
	span.SetTag("port", d.cfg.Port)
	span.SetTag("tls", d.cfg.TLS)

	maxAttempts := d.cfg.MaxRetries
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			backoff := time.Duration(d.cfg.RetryBackoffMs) * time.Millisecond << (attempt - 2)
			d.log.Warnf("imap connect attempt %d/%d after %v: %v", attempt, maxAttempts, backoff, lastErr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		c, err := d.connectOnce(ctx)
		if err == nil {
			if attempt > 1 {
				d.log.Infof("imap connect succeeded on attempt %d", attempt)
			}
			return c, nil
		}
		lastErr = err
		if !IsRetryableError(err) {
			tracing.TraceErr(span, err)
			return nil, err
		}
	}

	tracing.TraceErr(span, lastErr)
	return nil, lastErr
}

func (d *Dialer) connectOnce(ctx context.Context) (*client.Client, error) {
	serverAddr := fmt.Sprintf("%s:%d", d.cfg.Server, d.cfg.Port)

	dialer := &net.Dialer{
		Timeout:   time.Duration(d.cfg.TimeoutSeconds) * time.Second,
		KeepAlive: 30 * time.Second,
	}

	var c *client.Client
	var err error

	if d.cfg.TLS {
		tlsConfig := &tls.Config{
			ServerName:         d.cfg.Server,
			InsecureSkipVerify: d.cfg.AllowInsecureTLS,
		}
		c, err = client.DialWithDialerTLS(dialer, serverAddr, tlsConfig)
	} else {
		c, err = client.DialWithDialer(dialer, serverAddr)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", serverAddr, err)
	}

	caps, err := c.Capability()
	if err != nil {
		c.Logout()
		return nil, fmt.Errorf("failed to get capabilities: %w", err)
	}
	d.log.Debugf("server capabilities: %v", caps)

	c.Timeout = time.Duration(d.cfg.TimeoutSeconds) * time.Second
	if err := c.Login(d.cfg.Username, d.cfg.Password); err != nil {
		c.Logout()
		return nil, fmt.Errorf("failed to login as %s: %w", d.cfg.Username, err)
	}
	c.Timeout = 0

	d.log.Infof("connected and logged in to %s", serverAddr)
	return c, nil
}

var retryablePatterns = []string{
	"connection broken",
	"connection lost",
	"connection reset",
	"connection refused",
	"broken pipe",
	"i/o timeout",
	"eof",
	"use of closed network connection",
}

// IsRetryableError reports whether an error looks like a transient
// connection failure worth another attempt.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, pattern := range retryablePatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// IsExpungeIssued reports whether the server flagged the message as already
// expunged. Moves and deletes treat this as success since the message is
// gone either way.
func IsExpungeIssued(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToUpper(err.Error()), "[EXPUNGEISSUED]")
}

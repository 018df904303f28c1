package mailroom_errors

import "github.com/pkg/errors"

var (
	// ErrNoActiveSession is returned by every mailbox operation invoked
	// without an open IMAP session. Fatal for the current run, safe to
	// retry on the next scheduled run.
	ErrNoActiveSession = errors.New("no active IMAP session")

	// ErrUnsupportedEncoding is returned when a MIME part declares a
	// Content-Transfer-Encoding other than base64 or quoted-printable.
	// Fails the affected message only, never the whole folder.
	ErrUnsupportedEncoding = errors.New("unsupported content transfer encoding")

	// ErrFolderNotSelected is returned by UID-scoped operations before a
	// folder has been selected on the session.
	ErrFolderNotSelected = errors.New("no folder selected")
)

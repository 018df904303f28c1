package models

import (
	"time"
)

// RawMessage is the in-memory form of one fetched message before decoding.
// Header fields have already been through the repair pre-pass, so they are
// valid UTF-8; Raw holds the full RFC 5322 source as fetched, also forced to
// valid UTF-8.
type RawMessage struct {
	UID    uint32
	Folder string

	MessageID string
	Subject   string
	Date      *time.Time

	From    []Address
	To      []Address
	Cc      []Address
	ReplyTo []Address
	Sender  []Address

	// Header holds every raw header line after repair, keyed by canonical
	// name, preserving multiple values.
	Header map[string][]string

	// Structure is the BODYSTRUCTURE tree; nil when the server returned none.
	Structure *BodyPart

	Raw string
}

// Address is a decoded mailbox with an optional display name.
type Address struct {
	Name    string
	Address string
}

// BodyPart mirrors one node of the IMAP BODYSTRUCTURE response. Index is the
// dotted section usable in BODY[...] fetches, e.g. "1.2"; the root part has
// index "1" for non-multipart messages and "" for multipart containers.
type BodyPart struct {
	Index string

	MIMEType    string
	MIMESubType string
	Encoding    string
	Params      map[string]string

	Disposition       string
	DispositionParams map[string]string

	ID          string
	Description string
	Size        uint32

	Parts []*BodyPart
}

// IsMultipart reports whether this part is a container.
func (p *BodyPart) IsMultipart() bool {
	return len(p.Parts) > 0
}

// Walk visits the part and all descendants depth-first.
func (p *BodyPart) Walk(fn func(*BodyPart) bool) bool {
	if p == nil {
		return true
	}
	if !fn(p) {
		return false
	}
	for _, child := range p.Parts {
		if !child.Walk(fn) {
			return false
		}
	}
	return true
}

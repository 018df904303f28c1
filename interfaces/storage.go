package interfaces

import "context"

// RawArchive persists undecoded message source keyed by folder and UID, so
// the decoded database row can always be traced back to the original bytes.
type RawArchive interface {
	Store(ctx context.Context, folder string, uid uint32, raw []byte) error
	Fetch(ctx context.Context, folder string, uid uint32) ([]byte, error)
}

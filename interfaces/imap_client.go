package interfaces

import (
	"github.com/emersion/go-imap"
)

// ImapClient is the subset of the go-imap client surface the sync engine
// uses. *client.Client satisfies it directly; tests substitute fakes.
type ImapClient interface {
	Login(username, password string) error
	Logout() error
	Select(name string, readOnly bool) (*imap.MailboxStatus, error)
	List(ref, name string, ch chan *imap.MailboxInfo) error
	Lsub(ref, name string, ch chan *imap.MailboxInfo) error
	Create(name string) error
	Subscribe(name string) error
	Rename(existingName, newName string) error
	UidSearch(criteria *imap.SearchCriteria) ([]uint32, error)
	UidFetch(seqset *imap.SeqSet, items []imap.FetchItem, ch chan *imap.Message) error
	UidMove(seqset *imap.SeqSet, dest string) error
	UidCopy(seqset *imap.SeqSet, dest string) error
	UidStore(seqset *imap.SeqSet, item imap.StoreItem, value interface{}, ch chan *imap.Message) error
	Expunge(ch chan uint32) error
	Support(cap string) (bool, error)
	Noop() error
}

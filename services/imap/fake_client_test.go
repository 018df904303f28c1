package imap

import (
	"bytes"
	"fmt"

	goimap "github.com/emersion/go-imap"
)

// fakeClient is an in-memory ImapClient for tests. Folders map to raw
// message sources keyed by UID.
type fakeClient struct {
	folders    map[string]map[uint32]string
	subscribed map[string]bool
	caps       map[string]bool

	selected    string
	loggedOut   bool
	createCalls []string
	renameCalls [][2]string
	moveCalls   []string
	copyCalls   []string
	storeCalls  int
	expunges    int

	selectErr error
	moveErr   error
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		folders:    map[string]map[uint32]string{"INBOX": {}},
		subscribed: map[string]bool{},
		caps:       map[string]bool{"MOVE": true},
	}
}

func (f *fakeClient) addMessage(folder string, uid uint32, raw string) {
	if f.folders[folder] == nil {
		f.folders[folder] = map[uint32]string{}
	}
	f.folders[folder][uid] = raw
}

func (f *fakeClient) Login(username, password string) error { return nil }

func (f *fakeClient) Logout() error {
	f.loggedOut = true
	return nil
}

func (f *fakeClient) Select(name string, readOnly bool) (*goimap.MailboxStatus, error) {
	if f.selectErr != nil {
		return nil, f.selectErr
	}
	msgs, ok := f.folders[name]
	if !ok {
		return nil, fmt.Errorf("no such mailbox %s", name)
	}
	f.selected = name
	status := goimap.NewMailboxStatus(name, []goimap.StatusItem{goimap.StatusMessages})
	status.Messages = uint32(len(msgs))
	return status, nil
}

func (f *fakeClient) List(ref, name string, ch chan *goimap.MailboxInfo) error {
	defer close(ch)
	for folder := range f.folders {
		ch <- &goimap.MailboxInfo{Name: folder, Delimiter: "."}
	}
	return nil
}

func (f *fakeClient) Lsub(ref, name string, ch chan *goimap.MailboxInfo) error {
	defer close(ch)
	for folder := range f.subscribed {
		ch <- &goimap.MailboxInfo{Name: folder, Delimiter: "."}
	}
	return nil
}

func (f *fakeClient) Create(name string) error {
	f.createCalls = append(f.createCalls, name)
	if f.folders[name] == nil {
		f.folders[name] = map[uint32]string{}
	}
	return nil
}

func (f *fakeClient) Subscribe(name string) error {
	f.subscribed[name] = true
	return nil
}

func (f *fakeClient) Rename(existingName, newName string) error {
	f.renameCalls = append(f.renameCalls, [2]string{existingName, newName})
	if msgs, ok := f.folders[existingName]; ok {
		delete(f.folders, existingName)
		f.folders[newName] = msgs
	}
	return nil
}

func (f *fakeClient) UidSearch(criteria *goimap.SearchCriteria) ([]uint32, error) {
	var uids []uint32
	for uid := range f.folders[f.selected] {
		uids = append(uids, uid)
	}
	for i := 0; i < len(uids); i++ {
		for j := i + 1; j < len(uids); j++ {
			if uids[j] < uids[i] {
				uids[i], uids[j] = uids[j], uids[i]
			}
		}
	}
	return uids, nil
}

func (f *fakeClient) UidFetch(seqset *goimap.SeqSet, items []goimap.FetchItem, ch chan *goimap.Message) error {
	defer close(ch)
	for uid, raw := range f.folders[f.selected] {
		if !seqset.Contains(uid) {
			continue
		}
		msg := &goimap.Message{
			Uid:  uid,
			Body: map[*goimap.BodySectionName]goimap.Literal{},
		}
		for _, item := range items {
			section, err := goimap.ParseBodySectionName(item)
			if err != nil {
				continue
			}
			// GetBody strips Peek from the requested name before comparing.
			section.Peek = false
			msg.Body[section] = bytes.NewBufferString(raw)
		}
		ch <- msg
	}
	return nil
}

func (f *fakeClient) UidMove(seqset *goimap.SeqSet, dest string) error {
	if f.moveErr != nil {
		return f.moveErr
	}
	f.moveCalls = append(f.moveCalls, dest)
	f.transfer(seqset, dest)
	return nil
}

func (f *fakeClient) UidCopy(seqset *goimap.SeqSet, dest string) error {
	f.copyCalls = append(f.copyCalls, dest)
	f.transfer(seqset, dest)
	return nil
}

func (f *fakeClient) transfer(seqset *goimap.SeqSet, dest string) {
	if f.folders[dest] == nil {
		f.folders[dest] = map[uint32]string{}
	}
	for uid, raw := range f.folders[f.selected] {
		if seqset.Contains(uid) {
			f.folders[dest][uid] = raw
			delete(f.folders[f.selected], uid)
		}
	}
}

func (f *fakeClient) UidStore(seqset *goimap.SeqSet, item goimap.StoreItem, value interface{}, ch chan *goimap.Message) error {
	f.storeCalls++
	if ch != nil {
		close(ch)
	}
	return nil
}

func (f *fakeClient) Expunge(ch chan uint32) error {
	f.expunges++
	if ch != nil {
		close(ch)
	}
	return nil
}

func (f *fakeClient) Support(cap string) (bool, error) {
	return f.caps[cap], nil
}

func (f *fakeClient) Noop() error { return nil }

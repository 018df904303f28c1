package imap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/postmottak/mailroom/internal/logger"
	"github.com/postmottak/mailroom/internal/models"
)

func testLogger() logger.Logger {
	log := logger.NewAppLogger(&logger.Config{LogLevel: "error"})
	log.InitLogger()
	return log
}

func refreshedManager(t *testing.T, client *fakeClient) *FolderManager {
	t.Helper()
	fm := NewFolderManager(testLogger(), client)
	require.NoError(t, fm.Refresh(context.Background()))
	return fm
}

func TestEnsureFolderExists_Idempotent(t *testing.T) {
	client := newFakeClient()
	fm := refreshedManager(t, client)

	require.NoError(t, fm.EnsureFolderExists(context.Background(), "INBOX.Sak 1"))
	require.NoError(t, fm.EnsureFolderExists(context.Background(), "INBOX.Sak 1"))
	require.NoError(t, fm.EnsureFolderExists(context.Background(), "INBOX.Sak 1"))

	require.Equal(t, []string{"INBOX.Sak 1"}, client.createCalls)
}

func TestEnsureFolderExists_SkipsServerKnownFolder(t *testing.T) {
	client := newFakeClient()
	client.folders["INBOX.Allerede"] = map[uint32]string{}
	fm := refreshedManager(t, client)

	require.NoError(t, fm.EnsureFolderExists(context.Background(), "INBOX.Allerede"))

	require.Empty(t, client.createCalls)
}

func TestEnsureFolderExists_RequiresRefresh(t *testing.T) {
	fm := NewFolderManager(testLogger(), newFakeClient())
	require.Error(t, fm.EnsureFolderExists(context.Background(), "INBOX.Sak 1"))
}

func TestEnsureFolderSubscribed_Idempotent(t *testing.T) {
	client := newFakeClient()
	client.subscribed["INBOX.Sak 1"] = true
	fm := refreshedManager(t, client)

	require.NoError(t, fm.EnsureFolderSubscribed(context.Background(), "INBOX.Sak 1"))
	require.NoError(t, fm.EnsureFolderSubscribed(context.Background(), "INBOX.Sak 2"))
	require.NoError(t, fm.EnsureFolderSubscribed(context.Background(), "INBOX.Sak 2"))

	require.True(t, client.subscribed["INBOX.Sak 2"])
}

func TestCreateThreadFolders(t *testing.T) {
	client := newFakeClient()
	fm := refreshedManager(t, client)

	threads := []*models.Thread{
		{ID: "thread_a", Title: "Klagesak Særheim"},
		{ID: "thread_b", Title: "Høring/2021", Archived: true},
	}

	folders, err := fm.CreateThreadFolders(context.Background(), threads)

	require.NoError(t, err)
	require.Equal(t, []string{
		"INBOX.Archive",
		"INBOX.Klagesak Saerheim",
		"INBOX.Archive.Hoering-2021",
	}, folders)
	for _, folder := range folders {
		require.True(t, client.subscribed[folder], "folder: %s", folder)
	}
}

func TestArchiveFolder(t *testing.T) {
	client := newFakeClient()
	client.folders["INBOX.Sak 1"] = map[uint32]string{}
	fm := refreshedManager(t, client)

	require.NoError(t, fm.ArchiveFolder(context.Background(), "INBOX.Sak 1"))

	require.Equal(t, [][2]string{{"INBOX.Sak 1", "INBOX.Archive.Sak 1"}}, client.renameCalls)
	require.Contains(t, fm.ExistingFolders(), "INBOX.Archive.Sak 1")
	require.NotContains(t, fm.ExistingFolders(), "INBOX.Sak 1")
}

func TestArchiveFolder_AlreadyArchivedNoOp(t *testing.T) {
	client := newFakeClient()
	fm := refreshedManager(t, client)

	require.NoError(t, fm.ArchiveFolder(context.Background(), "INBOX.Archive.Sak 1"))

	require.Empty(t, client.renameCalls)
}

func TestArchiveThreadFolder(t *testing.T) {
	client := newFakeClient()
	client.folders["INBOX.Gammel sak"] = map[uint32]string{}
	fm := refreshedManager(t, client)

	thread := &models.Thread{ID: "thread_a", Title: "Gammel sak", Archived: true}

	require.NoError(t, fm.ArchiveThreadFolder(context.Background(), thread))

	require.Equal(t, [][2]string{{"INBOX.Gammel sak", "INBOX.Archive.Gammel sak"}}, client.renameCalls)
}

func TestArchiveThreadFolder_ActiveThreadUntouched(t *testing.T) {
	client := newFakeClient()
	client.folders["INBOX.Aktiv sak"] = map[uint32]string{}
	fm := refreshedManager(t, client)

	thread := &models.Thread{ID: "thread_a", Title: "Aktiv sak"}

	require.NoError(t, fm.ArchiveThreadFolder(context.Background(), thread))

	require.Empty(t, client.renameCalls)
}

func TestArchiveThreadFolder_NoLiveFolderNoOp(t *testing.T) {
	client := newFakeClient()
	fm := refreshedManager(t, client)

	thread := &models.Thread{ID: "thread_a", Title: "Borte sak", Archived: true}

	require.NoError(t, fm.ArchiveThreadFolder(context.Background(), thread))

	require.Empty(t, client.renameCalls)
}

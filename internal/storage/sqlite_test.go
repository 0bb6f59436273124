package storage

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hreq/internal/history"
	"hreq/internal/model"
)

func openTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	s, err := NewStorage(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func get(url string) model.RequestRecord {
	return model.RequestRecord{Method: model.MethodGet, URL: url, ContentType: model.ContentJSON}
}

func TestNewStorageSecuresFile(t *testing.T) {
	s := openTestStorage(t)

	info, err := os.Stat(s.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(secureFileMode), info.Mode().Perm())
}

func TestAppendAndLoadKeepsOrder(t *testing.T) {
	s := openTestStorage(t)

	first, err := s.AppendRecord(get("http://one"))
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)

	_, err = s.AppendRecord(model.RequestRecord{Method: model.MethodPost, URL: "http://p", ContentType: model.ContentXML, Body: "<a/>"})
	require.NoError(t, err)
	_, err = s.AppendRecord(get("http://two"))
	require.NoError(t, err)

	store, err := s.LoadStore()
	require.NoError(t, err)

	gets := store.Entries(model.MethodGet)
	require.Len(t, gets, 2)
	assert.Equal(t, "http://one", gets[0].Record.URL)
	assert.Equal(t, first.ID, gets[0].Record.ID)
	assert.Equal(t, "http://two", gets[1].Record.URL)

	post, ok := store.Get(model.MethodPost, 1)
	require.True(t, ok)
	assert.Equal(t, "<a/>", post.Record.Body)
	assert.Equal(t, model.ContentXML, post.Record.ContentType)
}

func TestDeleteRecord(t *testing.T) {
	s := openTestStorage(t)
	a, _ := s.AppendRecord(get("http://a"))
	_, _ = s.AppendRecord(get("http://b"))

	deleted, err := s.DeleteRecord(a.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = s.DeleteRecord(a.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	store, err := s.LoadStore()
	require.NoError(t, err)
	entry, ok := store.Get(model.MethodGet, 1)
	require.True(t, ok)
	assert.Equal(t, "GET #1", entry.Label)
	assert.Equal(t, "http://b", entry.Record.URL)
}

func TestSaveStoreReplacesEverything(t *testing.T) {
	s := openTestStorage(t)
	_, _ = s.AppendRecord(get("http://old"))

	replacement := history.NewStore()
	replacement.Append(get("http://new-1"))
	replacement.Append(get("http://new-2"))
	require.NoError(t, s.SaveStore(replacement))

	store, err := s.LoadStore()
	require.NoError(t, err)
	records := store.Records(model.MethodGet)
	require.Len(t, records, 2)
	assert.Equal(t, "http://new-1", records[0].URL)
	assert.Equal(t, "http://new-2", records[1].URL)

	require.NoError(t, s.ClearHistory())
	store, err = s.LoadStore()
	require.NoError(t, err)
	assert.Equal(t, 0, store.Len())
}

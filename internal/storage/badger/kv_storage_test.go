package badger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/vestigo/internal/common"
)

func testDB(t *testing.T) *BadgerDB {
	t.Helper()
	db, err := NewBadgerDB(common.GetLogger(), &common.BadgerConfig{Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestKVStorageRoundTrip(t *testing.T) {
	kv := NewKVStorage(testDB(t), common.GetLogger())

	require.NoError(t, kv.Set("pinecone_api_key", "pc-123"))

	value, err := kv.Get("pinecone_api_key")
	require.NoError(t, err)
	assert.Equal(t, "pc-123", value)

	// Keys are case-insensitive
	value, err = kv.Get("PINECONE_API_KEY")
	require.NoError(t, err)
	assert.Equal(t, "pc-123", value)

	exists, err := kv.Exists("pinecone_api_key")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, kv.Delete("pinecone_api_key"))
	_, err = kv.Get("pinecone_api_key")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestKVStorageMissingKey(t *testing.T) {
	kv := NewKVStorage(testDB(t), common.GetLogger())

	_, err := kv.Get("nope")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	exists, err := kv.Exists("nope")
	require.NoError(t, err)
	assert.False(t, exists)

	// Deleting a missing key is a no-op
	assert.NoError(t, kv.Delete("nope"))
}

func TestKVStorageTTLExpiry(t *testing.T) {
	kv := NewKVStorage(testDB(t), common.GetLogger())

	require.NoError(t, kv.SetWithTTL("landmark:LP-00001", `{"name":"Wyckoff House"}`, 20*time.Millisecond))

	value, err := kv.Get("landmark:LP-00001")
	require.NoError(t, err)
	assert.NotEmpty(t, value)

	time.Sleep(40 * time.Millisecond)

	_, err = kv.Get("landmark:LP-00001")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

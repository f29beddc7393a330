package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pevans/authorsync/article"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helper: create n records in listing order
func createTestRecords(n int) []*article.Record {
	records := make([]*article.Record, 0, n)
	for i := range n {
		stub := article.Stub{
			Headline: "Headline",
			Link:     "https://example.com/a",
			Date:     time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		}
		records = append(records, article.NewRecord(stub, "Court House News", "William Savinar", i))
	}
	return records
}

func TestWrite_PrettyJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "court-house-news-articles.json")
	records := createTestRecords(2)

	data, err := Write(path, records)
	require.NoError(t, err)

	onDisk, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, data, onDisk)
	assert.Contains(t, string(onDisk), "\n  {\n    \"id\": ", "should use two-space indent")

	var decoded []map[string]string
	require.NoError(t, json.Unmarshal(onDisk, &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, records[0].ID.String(), decoded[0]["id"])
	assert.Equal(t, "court-house-news-a", decoded[0]["slug"])
	assert.Equal(t, "court-house-news-b", decoded[1]["slug"])
	assert.Equal(t, "2024-01-02T00:00:00.000Z", decoded[0]["date"])
	assert.Equal(t, "", decoded[0]["media"])

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}

// TestWrite_Overwrites verifies the previous snapshot is fully replaced
func TestWrite_Overwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")

	_, err := Write(path, createTestRecords(5))
	require.NoError(t, err)
	_, err = Write(path, createTestRecords(1))
	require.NoError(t, err)

	var decoded []map[string]string
	onDisk, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(onDisk, &decoded))
	assert.Len(t, decoded, 1)
}

func TestWrite_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")

	data, err := Write(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestWrite_MissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "snapshot.json")

	_, err := Write(path, createTestRecords(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to write snapshot")
}

type fakePutter struct {
	bucket, key, contentType string
	body                     []byte
	err                      error
}

func (p *fakePutter) Put(_ context.Context, bucket, key string, body io.Reader, contentType string) error {
	p.bucket, p.key, p.contentType = bucket, key, contentType
	p.body, _ = io.ReadAll(body)
	return p.err
}

func TestMirror(t *testing.T) {
	putter := &fakePutter{}

	err := Mirror(context.Background(), putter, "bucket", "snapshots/chn.json", []byte("[]"))
	require.NoError(t, err)

	assert.Equal(t, "bucket", putter.bucket)
	assert.Equal(t, "snapshots/chn.json", putter.key)
	assert.Equal(t, "application/json", putter.contentType)
	assert.Equal(t, "[]", string(putter.body))
}

func TestMirror_Error(t *testing.T) {
	putter := &fakePutter{err: errors.New("access denied")}

	err := Mirror(context.Background(), putter, "bucket", "key", []byte("[]"))
	assert.EqualError(t, err, "access denied")
}

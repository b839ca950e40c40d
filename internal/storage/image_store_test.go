package storage

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func TestNewKey(t *testing.T) {
	assert.Equal(t, "posts/abc.gif", NewKey("abc", "cat.GIF", "image/gif"))
	assert.Equal(t, "posts/abc.jpg", NewKey("abc", "photos/cat.jpg", "image/jpeg"))

	key := NewKey("abc", "blob", "image/png")
	assert.True(t, strings.HasPrefix(key, KeyPrefix+"abc."), key)

	assert.Equal(t, "posts/abc", NewKey("abc", "blob", "application/x-unknown-type"))
}

func TestDisabledImageStore(t *testing.T) {
	var store ImageStore = DisabledImageStore{}

	_, err := store.Save(context.Background(), "cat.gif", "image/gif", strings.NewReader("GIF89a"))
	assert.ErrorIs(t, err, ErrStorageDisabled)

	_, err = store.Open(context.Background(), "posts/cat.gif")
	assert.ErrorIs(t, err, ErrImageNotFound)
}

func TestNewImage(t *testing.T) {
	img := NewImage([]byte("GIF89a"), "image/gif")
	defer img.Close()

	assert.Equal(t, "image/gif", img.ContentType)
	assert.Equal(t, int64(6), img.Size)
	content, err := io.ReadAll(img)
	require.NoError(t, err)
	assert.Equal(t, "GIF89a", string(content))
}

// unreachableDatabase returns a database on a client that never finds a server.
// The driver connects lazily, so no MongoDB is needed.
func unreachableDatabase(t *testing.T) *mongo.Database {
	t.Helper()
	client, err := mongo.Connect(context.Background(), options.Client().
		ApplyURI("mongodb://127.0.0.1:1").
		SetServerSelectionTimeout(200*time.Millisecond))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })
	return client.Database("yatube_test")
}

func TestGridFSImageStore_ConcurrentCallsWithDeadlines(t *testing.T) {
	store, err := NewGridFSImageStore(unreachableDatabase(t))
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), time.Duration(50+i*10)*time.Millisecond)
			defer cancel()
			if i%2 == 0 {
				_, errs[i] = store.Save(ctx, "cat.gif", "image/gif", strings.NewReader("GIF89a"))
			} else {
				_, errs[i] = store.Open(ctx, "posts/cat.gif")
			}
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		assert.Error(t, err, "call %d", i)
	}
}

package persist

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"state", true},
		{"state-v2.backup_1", true},
		{"", false},
		{"..", false},
		{"a/b", false},
		{`a\b`, false},
		{"sp ace", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidName(tt.name))
		})
	}
}

func TestFileStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "snapshots")
	store, err := NewFileStore(dir)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = store.Load(ctx, "state")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Save(ctx, "state", []byte(`{"a":1}`)))
	require.NoError(t, store.Save(ctx, "state", []byte(`{"a":2}`)))

	data, err := store.Load(ctx, "state")
	require.NoError(t, err)
	assert.Equal(t, `{"a":2}`, string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary files are renamed away")
	assert.Equal(t, "state.json", entries[0].Name())

	assert.ErrorIs(t, store.Save(ctx, "../escape", nil), ErrInvalidName)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, store.Save(cancelled, "state", nil), context.Canceled)
}

// fakeS3 is an in-memory S3API.
type fakeS3 struct {
	objects map[string][]byte
	meta    map[string]map[string]string
	putErr  error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte), meta: make(map[string]map[string]string)}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	key := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	f.objects[key] = data
	f.meta[key] = in.Metadata
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func TestS3Store(t *testing.T) {
	client := newFakeS3()
	store := NewS3Store(client, "bucket", "snapshots/")
	ctx := context.Background()

	_, err := store.Load(ctx, "state")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Save(ctx, "state", []byte(`{"a":1}`)))
	assert.Contains(t, client.objects, "bucket/snapshots/state.json")
	assert.Contains(t, client.meta["bucket/snapshots/state.json"], "saved-at")

	data, err := store.Load(ctx, "state")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(data))

	client.putErr = errors.New("access denied")
	err = store.Save(ctx, "state", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")

	assert.ErrorIs(t, store.Save(ctx, "a/b", nil), ErrInvalidName)
}

var _ S3API = (*s3.Client)(nil)

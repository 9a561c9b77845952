// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package publish

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memObject struct {
	buf         bytes.Buffer
	ctx         context.Context
	contentType string
	writeErr    error
	closeErr    error
	closed      bool
}

func (o *memObject) Write(p []byte) (int, error) {
	if o.writeErr != nil {
		return 0, o.writeErr
	}
	return o.buf.Write(p)
}

func (o *memObject) String() string { return o.buf.String() }

func (o *memObject) Close() error {
	o.closed = true
	return o.closeErr
}

type memBucket struct {
	objects  map[string]*memObject
	writeErr error
	closeErr error
}

func (b *memBucket) NewWriter(ctx context.Context, object, contentType string) io.WriteCloser {
	if b.objects == nil {
		b.objects = map[string]*memObject{}
	}
	o := &memObject{ctx: ctx, contentType: contentType, writeErr: b.writeErr, closeErr: b.closeErr}
	b.objects[object] = o
	return o
}

func TestPublish(t *testing.T) {
	path := filepath.Join(t.TempDir(), "filtered_pubmed_x_2015-2016.csv")
	require.NoError(t, os.WriteFile(path, []byte("pubmed_id,title,abstract,publication_year\n"), 0o644))

	bucket := &memBucket{}
	p := New(bucket, "harvest", "pubmed/")

	uri, err := p.Publish(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "gs://harvest/pubmed/filtered_pubmed_x_2015-2016.csv", uri)

	obj := bucket.objects["pubmed/filtered_pubmed_x_2015-2016.csv"]
	require.NotNil(t, obj)
	assert.True(t, obj.closed)
	assert.Equal(t, "text/csv; charset=utf-8", obj.contentType)
	assert.Equal(t, "pubmed_id,title,abstract,publication_year\n", obj.String())
}

func TestPublish_MissingFile(t *testing.T) {
	p := New(&memBucket{}, "harvest", "")
	_, err := p.Publish(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestPublish_CloseError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.csv")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	p := New(&memBucket{closeErr: errors.New("precondition failed")}, "harvest", "")
	_, err := p.Publish(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "precondition failed")
}

func TestPublish_WriteErrorAbortsUpload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.csv")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	bucket := &memBucket{writeErr: errors.New("connection reset")}
	p := New(bucket, "harvest", "")
	_, err := p.Publish(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")

	obj := bucket.objects["a.csv"]
	require.NotNil(t, obj)
	assert.False(t, obj.closed, "a failed upload must not be committed")
	assert.ErrorIs(t, obj.ctx.Err(), context.Canceled)
}

func TestObjectName(t *testing.T) {
	p := New(nil, "b", "runs/2026/")
	assert.Equal(t, "runs/2026/out.csv", p.ObjectName("/tmp/data/out.csv"))
	assert.NoError(t, p.Close())
}

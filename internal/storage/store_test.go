package storage

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
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocal_Put(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "local_assets")
	store := NewLocal(dir)

	loc, err := store.Put(context.Background(), "report", "report_p1_img1.png", []byte("png"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, filepath.ToSlash(dir)+"/report_p1_img1.png", loc)

	data, err := os.ReadFile(filepath.Join(dir, "report_p1_img1.png"))
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))
}

func TestLocal_PutRejectsPaths(t *testing.T) {
	_, err := NewLocal(t.TempDir()).Put(context.Background(), "r", "../x.png", nil, "image/png")
	assert.Error(t, err)
}

type fakeS3 struct {
	objects map[string][]byte
	types   map[string]string
	err     error
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	b, _ := io.ReadAll(in.Body)
	key := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	f.objects[key] = b
	f.types[key] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	b, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &smithy.GenericAPIError{Code: "NoSuchKey", Message: "missing"}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(b))}, nil
}

func newFake() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
}

func TestS3_Put(t *testing.T) {
	fake := newFake()
	store := newS3WithClient(fake, "assets-bucket")

	loc, err := store.Put(context.Background(), "report", "report_p2_img1.jpeg", []byte{1, 2}, "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "s3://assets-bucket/assets/report/report_p2_img1.jpeg", loc)
	assert.Equal(t, []byte{1, 2}, fake.objects["assets-bucket/assets/report/report_p2_img1.jpeg"])
	assert.Equal(t, "image/jpeg", fake.types["assets-bucket/assets/report/report_p2_img1.jpeg"])
}

func TestS3_PutFailure(t *testing.T) {
	fake := newFake()
	fake.err = &smithy.GenericAPIError{Code: "AccessDenied", Message: "no"}

	_, err := newS3WithClient(fake, "b").Put(context.Background(), "r", "r_p1_img1.png", nil, "image/png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AccessDenied")

	var apiErr smithy.APIError
	assert.True(t, errors.As(err, &apiErr))
}

func TestS3_Download(t *testing.T) {
	fake := newFake()
	fake.objects["inbox/docs/a.pdf"] = []byte("%PDF-1.7")
	store := newS3WithClient(fake, "assets")

	p, cleanup, err := store.Download(context.Background(), "inbox", "docs/a.pdf")
	require.NoError(t, err)
	assert.Equal(t, "a.pdf", filepath.Base(p))

	data, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7", string(data))

	cleanup()
	_, err = os.Stat(p)
	assert.True(t, os.IsNotExist(err))

	_, _, err = store.Download(context.Background(), "inbox", "missing.pdf")
	assert.ErrorContains(t, err, "NoSuchKey")
}

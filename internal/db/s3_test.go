package db_test

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tender_spider/internal/db"
	"tender_spider/internal/models"
)

type fakeObjects struct {
	objects map[string][]byte
}

func (f *fakeObjects) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("missing")}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeObjects) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func TestS3Backend(t *testing.T) {
	t.Parallel()

	objects := &fakeObjects{objects: map[string][]byte{}}
	backend := db.NewS3BackendWithClient(objects, "runner-state", "tender_spider/seen.json")

	state, err := backend.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, state)

	want := models.SeenState{"ilan": {"123456": "2026-03-01T09:00:00Z"}}
	require.NoError(t, backend.Save(context.Background(), want))
	assert.Contains(t, string(objects.objects["runner-state/tender_spider/seen.json"]), `"123456"`)

	got, err := backend.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

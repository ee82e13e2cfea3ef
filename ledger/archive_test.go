package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/alexanderovie/fascinante-listings/internal/cryptox"
	"github.com/alexanderovie/fascinante-listings/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

func stubS3(t *testing.T, capture *s3.PutObjectInput, putErr error) *int {
	t.Helper()

	origLoad := loadDefaultAWSConfig
	origNew := newS3ClientFromConfig
	origPut := putObject
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNew
		putObject = origPut
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, nil
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return &s3.Client{}
	}

	calls := new(int)
	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		*calls++
		if putErr != nil {
			return nil, putErr
		}
		if capture != nil {
			*capture = *in
		}
		return &s3.PutObjectOutput{}, nil
	}
	return calls
}

func archiveConfig() ArchiveConfig {
	return ArchiveConfig{
		Bucket:     "audit-archive",
		Region:     "us-east-1",
		AccessKey:  "admin",
		SecretKey:  "secretpassword",
		SealSecret: "seal-secret",
	}
}

func TestArchive_NoAgedEvents(t *testing.T) {
	calls := stubS3(t, nil, nil)
	a := NewArchiver(&fakeRepo{}, archiveConfig(), logging.NewJSON(io.Discard))

	n, err := a.Archive(context.Background(), 30*24*time.Hour, 100)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, *calls, "no upload without events")
}

func TestArchive_UploadsSealedBatch(t *testing.T) {
	events := []*ActivityEvent{
		{ID: "evt-1", PrincipalID: "user-1", EntityID: "locations/7", Action: ActionLocationEdit, CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "evt-2", PrincipalID: "user-1", EntityID: "locations/7", Action: ActionAdminAdd, CreatedAt: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)},
	}

	var captured s3.PutObjectInput
	calls := stubS3(t, &captured, nil)

	a := NewArchiver(&fakeRepo{beforeOut: events}, archiveConfig(), logging.NewJSON(io.Discard))

	n, err := a.Archive(context.Background(), 30*24*time.Hour, 100)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, *calls)

	assert.Equal(t, "audit-archive", aws.ToString(captured.Bucket))
	assert.True(t, strings.HasPrefix(aws.ToString(captured.Key), "audit/"))
	assert.True(t, strings.HasSuffix(aws.ToString(captured.Key), ".json.sealed"))

	raw, err := io.ReadAll(captured.Body)
	require.NoError(t, err)

	var batch archiveBatch
	require.NoError(t, json.Unmarshal(raw, &batch))
	assert.Equal(t, 2, batch.Count)
	assert.Equal(t, events[0].CreatedAt, batch.Window.From)
	assert.Equal(t, events[1].CreatedAt, batch.Window.To)

	key := cryptox.DeriveKey([]byte("seal-secret"), archiveKeySalt)
	plaintext, err := cryptox.Open(batch.Sealed, batch.Nonce, key)
	require.NoError(t, err)

	var restored []*ActivityEvent
	require.NoError(t, json.Unmarshal(plaintext, &restored))
	require.Len(t, restored, 2)
	assert.Equal(t, "evt-1", restored[0].ID)
}

func TestArchive_RepoError(t *testing.T) {
	stubS3(t, nil, nil)
	a := NewArchiver(&fakeRepo{beforeErr: errors.New("down")}, archiveConfig(), logging.NewJSON(io.Discard))

	_, err := a.Archive(context.Background(), time.Hour, 10)
	assert.Error(t, err)
}

func TestArchive_UploadError(t *testing.T) {
	stubS3(t, nil, errors.New("bucket gone"))
	a := NewArchiver(&fakeRepo{beforeOut: []*ActivityEvent{{ID: "evt-1", CreatedAt: time.Now()}}}, archiveConfig(), logging.NewJSON(io.Discard))

	_, err := a.Archive(context.Background(), time.Hour, 10)
	assert.Error(t, err)
}

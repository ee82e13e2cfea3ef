package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alexanderovie/fascinante-listings/internal/cryptox"
	"github.com/alexanderovie/fascinante-listings/logging"
	"github.com/google/uuid"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Indirections for test stubbing, same shape as the rest of the codebase
// uses for AWS plumbing.
var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in, optFns...)
	}
)

var archiveKeySalt = []byte("fascinante-ledger-archive")

// ArchiveConfig is the object-storage target for aged audit batches.
type ArchiveConfig struct {
	Bucket       string
	Region       string
	BaseEndpoint string
	AccessKey    string
	SecretKey    string
	SealSecret   string
}

// Archiver copies aged activity events into object storage as sealed JSON
// batches. Rows stay in the database; the archive is the long-term copy.
type Archiver struct {
	repo Repository
	cfg  ArchiveConfig
	key  []byte
	now  func() time.Time
	log  logging.Logger
}

func NewArchiver(repo Repository, cfg ArchiveConfig, log logging.Logger) *Archiver {
	return &Archiver{
		repo: repo,
		cfg:  cfg,
		key:  cryptox.DeriveKey([]byte(cfg.SealSecret), archiveKeySalt),
		now:  time.Now,
		log:  log,
	}
}

type archiveBatch struct {
	Nonce  []byte           `json:"nonce"`
	Sealed []byte           `json:"sealed"`
	Count  int              `json:"count"`
	Window archiveWindowRef `json:"window"`
}

type archiveWindowRef struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Archive uploads up to batchSize events older than maxAge and reports how
// many were shipped. Zero events is not an error.
func (a *Archiver) Archive(ctx context.Context, maxAge time.Duration, batchSize int) (int, error) {
	cutoff := a.now().Add(-maxAge)

	events, err := a.repo.EventsBefore(ctx, cutoff, batchSize)
	if err != nil {
		return 0, fmt.Errorf("error selecting events for archive: %w", err)
	}
	if len(events) == 0 {
		return 0, nil
	}

	payload, err := json.Marshal(events)
	if err != nil {
		return 0, fmt.Errorf("error serializing archive batch: %w", err)
	}

	sealed, nonce, err := cryptox.Seal(payload, a.key)
	if err != nil {
		return 0, fmt.Errorf("error sealing archive batch: %w", err)
	}

	object, err := json.Marshal(archiveBatch{
		Nonce:  nonce,
		Sealed: sealed,
		Count:  len(events),
		Window: archiveWindowRef{
			From: events[0].CreatedAt,
			To:   events[len(events)-1].CreatedAt,
		},
	})
	if err != nil {
		return 0, fmt.Errorf("error serializing archive object: %w", err)
	}

	client, err := a.s3Client(ctx)
	if err != nil {
		return 0, err
	}

	key := a.objectKey()
	if _, err := putObject(client, ctx, &s3.PutObjectInput{
		Bucket: aws.String(a.cfg.Bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(object),
	}); err != nil {
		return 0, fmt.Errorf("error uploading archive batch: %w", err)
	}

	a.log.Info(ctx, "audit batch archived", "key", key, "events", len(events))
	return len(events), nil
}

func (a *Archiver) s3Client(ctx context.Context) (*s3.Client, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		awsconfig.WithRegion(a.cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			a.cfg.AccessKey,
			a.cfg.SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("error loading object storage config: %w", err)
	}

	return newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if a.cfg.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(a.cfg.BaseEndpoint)
		}
	}), nil
}

func (a *Archiver) objectKey() string {
	d := a.now().UTC()
	return fmt.Sprintf("audit/%d/%02d/%02d/%v.json.sealed", d.Year(), d.Month(), d.Day(), uuid.New())
}

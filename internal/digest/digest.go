// Package digest builds the weekly family activity report on a schedule,
// keeps the latest one in the key/value store and optionally archives the
// spreadsheet export in S3-compatible storage.
package digest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/robfig/cron/v3"

	"github.com/dukerupert/kinfolk/internal/analytics"
	"github.com/dukerupert/kinfolk/internal/kv"
	"github.com/dukerupert/kinfolk/internal/websocket"
)

// LastKey is the key/value entry holding the most recent digest.
const LastKey = "digest:last"

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ReportBuilder interface {
	Build(p analytics.Period) (analytics.Report, error)
}

type Broadcaster interface {
	Broadcast(msg websocket.Message) int
}

// s3Client is the subset of *s3.Client the digest needs.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type S3Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	Prefix    string

	// Passphrase, when set, encrypts uploads with Seal.
	Passphrase string
}

// NewS3Client returns a path-style client, which works for AWS and for
// MinIO-like endpoints alike.
func NewS3Client(cfg S3Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// Digest is what gets stored under LastKey.
type Digest struct {
	GeneratedAt time.Time        `json:"generated_at"`
	ObjectKey   string           `json:"object_key,omitempty"`
	Report      analytics.Report `json:"report"`
}

// Runner owns the cron schedule and produces digests.
type Runner struct {
	period  analytics.Period
	reports ReportBuilder
	store   kv.Store
	hub     Broadcaster
	logger  *slog.Logger

	s3         s3Client
	bucket     string
	prefix     string
	passphrase string

	mu      sync.Mutex // serializes Run
	cron    *cron.Cron
	entryID cron.EntryID
}

// NewRunner returns a Runner whose schedule fires in loc.
func NewRunner(reports ReportBuilder, store kv.Store, hub Broadcaster, loc *time.Location, logger *slog.Logger) *Runner {
	if loc == nil {
		loc = time.Local
	}
	return &Runner{
		period:  analytics.PeriodWeek,
		reports: reports,
		store:   store,
		hub:     hub,
		logger:  logger,
		cron:    cron.New(cron.WithSeconds(), cron.WithLocation(loc)),
	}
}

// WithUpload enables archiving the XLSX export to bucket under prefix.
func (r *Runner) WithUpload(client s3Client, bucket, prefix string) *Runner {
	r.s3 = client
	r.bucket = bucket
	r.prefix = prefix
	return r
}

// WithEncryption seals uploads with passphrase. Sealed objects get an
// ".enc" suffix and can be restored with Open.
func (r *Runner) WithEncryption(passphrase string) *Runner {
	r.passphrase = passphrase
	return r
}

// Start schedules Run using a six-field cron spec (seconds first).
func (r *Runner) Start(schedule string) error {
	id, err := r.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if _, err := r.Run(ctx); err != nil {
			r.logger.Error("scheduled digest failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule digest %q: %w", schedule, err)
	}
	r.entryID = id
	r.cron.Start()
	r.logger.Info("digest scheduled", "schedule", schedule, "next", r.cron.Entry(id).Next)
	return nil
}

// Stop halts the schedule. The returned context is done once a running
// digest has finished.
func (r *Runner) Stop() context.Context {
	return r.cron.Stop()
}

// Run builds the digest now, stores it and notifies clients. A failed upload
// is logged and the digest is still stored without an object key.
func (r *Runner) Run(ctx context.Context) (*Digest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	report, err := r.reports.Build(r.period)
	if err != nil {
		return nil, fmt.Errorf("build report: %w", err)
	}
	d := &Digest{GeneratedAt: report.GeneratedAt, Report: report}

	if r.s3 != nil {
		key, err := r.upload(ctx, report)
		if err != nil {
			r.logger.Error("upload digest", "bucket", r.bucket, "error", err)
		} else {
			d.ObjectKey = key
		}
	}

	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("marshal digest: %w", err)
	}
	if err := r.store.Set(ctx, LastKey, string(data)); err != nil {
		return nil, fmt.Errorf("store digest: %w", err)
	}

	if r.hub != nil {
		r.hub.Broadcast(websocket.NewMessage(websocket.EntityDigest, "ready", 0, map[string]any{
			"period":     string(report.Period),
			"object_key": d.ObjectKey,
		}))
	}
	r.logger.Info("digest built",
		"period", report.Period,
		"tasks", report.Summary.TotalTasks,
		"events", report.Summary.TotalEvents,
		"object_key", d.ObjectKey,
	)
	return d, nil
}

func (r *Runner) upload(ctx context.Context, report analytics.Report) (string, error) {
	var buf bytes.Buffer
	if err := analytics.WriteXLSX(&buf, report); err != nil {
		return "", fmt.Errorf("render xlsx: %w", err)
	}

	key := fmt.Sprintf("%skinfolk-%s-%s.xlsx", r.prefix, report.Period, report.GeneratedAt.Format("2006-01-02"))
	body, contentType := buf.Bytes(), xlsxContentType
	if r.passphrase != "" {
		sealed, err := Seal(body, r.passphrase)
		if err != nil {
			return "", fmt.Errorf("encrypt xlsx: %w", err)
		}
		body, contentType, key = sealed, "application/octet-stream", key+".enc"
	}

	_, err := r.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(r.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	return key, nil
}

// ErrNoDigest is returned by Last before the first digest has been built.
var ErrNoDigest = errors.New("no digest has been built yet")

// Last returns the most recently stored digest.
func Last(ctx context.Context, store kv.Store) (*Digest, error) {
	raw, ok, err := store.Get(ctx, LastKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoDigest
	}
	var d Digest
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return nil, fmt.Errorf("decode digest: %w", err)
	}
	return &d, nil
}

package attachments

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"threadview/api/internal/thread"
)

const DefaultTTL = 15 * time.Minute

// Config locates the bucket holding archived attachments.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
	TTL       time.Duration
}

// Presigner hands out time-limited download URLs for archived attachments.
// A nil *Presigner is valid and returns stored URLs unchanged.
type Presigner struct {
	client *minio.Client
	bucket string
	ttl    time.Duration
}

// NewPresigner returns nil when no endpoint is configured.
func NewPresigner(cfg Config) (*Presigner, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, nil
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("create object storage client: %w", err)
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Presigner{client: client, bucket: cfg.Bucket, ttl: ttl}, nil
}

// URL returns a download URL for a. Attachments without an object key keep
// their stored URL.
func (p *Presigner) URL(ctx context.Context, a thread.Attachment) (string, error) {
	if p == nil || a.ObjectKey == "" {
		return a.URL, nil
	}
	params := url.Values{}
	if a.Filename != "" {
		params.Set("response-content-disposition", fmt.Sprintf("inline; filename=%q", a.Filename))
	}
	u, err := p.client.PresignedGetObject(ctx, p.bucket, a.ObjectKey, p.ttl, params)
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", a.ObjectKey, err)
	}
	return u.String(), nil
}

// Resolve rewrites attachment URLs on visible content blocks. Placeholders
// and suppressed blocks carry no attachments and are left alone. A failed
// presign keeps the stored URL.
func (p *Presigner) Resolve(ctx context.Context, blocks []thread.DisplayBlock) {
	for i := range blocks {
		if !blocks[i].Visible || blocks[i].Placeholder() {
			continue
		}
		for j, a := range blocks[i].Attachments {
			resolved, err := p.URL(ctx, a)
			if err != nil {
				log.Printf("attachments: %v", err)
				continue
			}
			blocks[i].Attachments[j].URL = resolved
		}
	}
}

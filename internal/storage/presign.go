package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Dan9191/finance-service/internal/common"
	"github.com/Dan9191/finance-service/internal/config"
	"github.com/google/uuid"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const uploadExpiry = 15 * time.Minute

var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
)

var iconExtensions = map[string]string{
	"image/png":     ".png",
	"image/jpeg":    ".jpg",
	"image/webp":    ".webp",
	"image/svg+xml": ".svg",
}

// IconUpload is a presigned PUT for a PWA icon
type IconUpload struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	PublicURL string    `json:"public_url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Presigner issues presigned S3 upload URLs for app assets
type Presigner struct {
	cfg *config.Config
}

// NewPresigner creates a new Presigner
func NewPresigner(cfg *config.Config) *Presigner {
	return &Presigner{cfg: cfg}
}

func (p *Presigner) presignClient(ctx context.Context) (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		awsconfig.WithRegion(p.cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			p.cfg.S3AccessKey, p.cfg.S3SecretKey, "",
		)))
	if err != nil {
		return nil, fmt.Errorf("failed to load S3 config: %w", err)
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if p.cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(p.cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	})
	return s3.NewPresignClient(client), nil
}

// PresignIconUpload returns a 15 minute PUT URL for an icon of the given content type
func (p *Presigner) PresignIconUpload(ctx context.Context, contentType string) (*IconUpload, error) {
	ext, ok := iconExtensions[contentType]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported icon content type %q", common.ErrValidation, contentType)
	}

	pc, err := p.presignClient(ctx)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("pwa/icons/%s%s", uuid.NewString(), ext)
	req, err := presignPutObject(pc, ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.cfg.S3Bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(uploadExpiry))
	if err != nil {
		return nil, fmt.Errorf("failed to presign icon upload: %w", err)
	}

	return &IconUpload{
		Key:       key,
		URL:       req.URL,
		PublicURL: strings.TrimRight(p.cfg.S3PublicURL, "/") + "/" + key,
		ExpiresAt: time.Now().Add(uploadExpiry).UTC(),
	}, nil
}

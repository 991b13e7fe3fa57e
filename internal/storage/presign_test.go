package storage

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Dan9191/finance-service/internal/common"
	"github.com/Dan9191/finance-service/internal/config"
	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testS3Config() *config.Config {
	return &config.Config{
		S3AccessKey: "minioadmin",
		S3SecretKey: "minioadmin",
		S3Bucket:    "app-assets",
		S3Region:    "us-east-1",
		S3Endpoint:  "http://127.0.0.1:9000",
		S3PublicURL: "http://cdn.local/app-assets/",
	}
}

func TestPresignIconUpload(t *testing.T) {
	orig := presignPutObject
	defer func() { presignPutObject = orig }()

	var gotKey, gotType string
	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		gotKey, gotType = *in.Key, *in.ContentType
		assert.Equal(t, "app-assets", *in.Bucket)
		return &v4.PresignedHTTPRequest{URL: "http://127.0.0.1:9000/app-assets/" + *in.Key + "?X-Amz-Signature=abc"}, nil
	}

	up, err := NewPresigner(testS3Config()).PresignIconUpload(context.Background(), "image/png")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(up.Key, "pwa/icons/"))
	assert.True(t, strings.HasSuffix(up.Key, ".png"))
	assert.Equal(t, gotKey, up.Key)
	assert.Equal(t, "image/png", gotType)
	assert.Equal(t, "http://cdn.local/app-assets/"+up.Key, up.PublicURL)
	assert.Contains(t, up.URL, "X-Amz-Signature")
}

func TestPresignIconUpload_UnsupportedType(t *testing.T) {
	_, err := NewPresigner(testS3Config()).PresignIconUpload(context.Background(), "application/pdf")
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestPresignIconUpload_ConfigError(t *testing.T) {
	orig := loadDefaultAWSConfig
	defer func() { loadDefaultAWSConfig = orig }()
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("load-fail")
	}

	_, err := NewPresigner(testS3Config()).PresignIconUpload(context.Background(), "image/svg+xml")
	assert.ErrorContains(t, err, "load-fail")
}

func TestPresignIconUpload_PresignError(t *testing.T) {
	orig := presignPutObject
	defer func() { presignPutObject = orig }()
	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return nil, errors.New("sign-fail")
	}

	_, err := NewPresigner(testS3Config()).PresignIconUpload(context.Background(), "image/webp")
	assert.ErrorContains(t, err, "sign-fail")
}

// Package upload stores profile images in an S3 compatible bucket.
package upload

import (
	"context"
	"fmt"
	"mime/multipart"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/slms/leave-service/internal/apperr"
	"github.com/slms/leave-service/internal/config"
)

// MaxImageSize is the largest accepted profile image (2 MiB).
const MaxImageSize = 2 << 20

// FieldName is the multipart field carrying the image.
const FieldName = "profileImage"

var imageExt = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/jpg":  "jpg",
}

// CheckImage rejects files that are not png/jpeg or exceed MaxImageSize.
func CheckImage(fh *multipart.FileHeader) error {
	if _, ok := imageExt[strings.ToLower(fh.Header.Get("Content-Type"))]; !ok {
		return apperr.Validation(apperr.MsgOnlyImageAllowed)
	}
	if fh.Size > MaxImageSize {
		return apperr.Validation(apperr.MsgFileTooLarge)
	}
	return nil
}

type putter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

var (
	loadAWSConfig = awsconfig.LoadDefaultConfig
	newS3Client   = func(cfg aws.Config, optFns ...func(*s3.Options)) putter {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// S3Uploader puts images under "profiles/" and returns their public URL.
type S3Uploader struct {
	client    putter
	bucket    string
	publicURL string
	log       logrus.FieldLogger
	newKey    func(ext string) string
}

// NewS3Uploader builds a client with static credentials.  A custom
// Endpoint (MinIO) switches to path-style addressing.
func NewS3Uploader(ctx context.Context, cfg config.S3Config, log logrus.FieldLogger) (*S3Uploader, error) {
	awsCfg, err := loadAWSConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := newS3Client(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	public := strings.TrimSuffix(cfg.PublicURL, "/")
	if public == "" {
		public = strings.TrimSuffix(cfg.Endpoint, "/") + "/" + cfg.Bucket
	}
	return &S3Uploader{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: public,
		log:       log,
		newKey: func(ext string) string {
			return path.Join("profiles", uuid.NewString()+"."+ext)
		},
	}, nil
}

// Upload stores fh and returns its URL.  Any failure is logged and
// reported as nil so the caller decides how to react.
func (u *S3Uploader) Upload(ctx context.Context, fh *multipart.FileHeader) *string {
	ct := strings.ToLower(fh.Header.Get("Content-Type"))
	f, err := fh.Open()
	if err != nil {
		u.log.WithError(err).Warn("upload: open multipart file")
		return nil
	}
	defer f.Close()

	key := u.newKey(imageExt[ct])
	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentType:   aws.String(ct),
		ContentLength: aws.Int64(fh.Size),
	})
	if err != nil {
		u.log.WithError(err).WithField("key", key).Warn("upload: put object")
		return nil
	}
	url := u.publicURL + "/" + key
	return &url
}

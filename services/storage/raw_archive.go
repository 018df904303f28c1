package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/opentracing/opentracing-go"

	"github.com/postmottak/mailroom/config"
	"github.com/postmottak/mailroom/interfaces"
	"github.com/postmottak/mailroom/internal/tracing"
	"github.com/postmottak/mailroom/services/storage/aws_client"
)

// S3RawArchive stores undecoded message source in an S3 bucket, keyed by
// folder and UID. The archive is write-mostly; reads happen when an
// operator needs the original bytes behind a decoded row.
type S3RawArchive struct {
	client aws_client.S3Client
	bucket string
}

func NewS3RawArchive(cfg *config.ArchiveConfig) interfaces.RawArchive {
	client := aws_client.NewS3Client(&aws.Config{
		Region:      aws.String(cfg.Region),
		Credentials: credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
	})
	return &S3RawArchive{
		client: client,
		bucket: cfg.Bucket,
	}
}

func (a *S3RawArchive) Store(ctx context.Context, folder string, uid uint32, raw []byte) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "S3RawArchive.Store")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag(tracing.SpanTagFolder, folder)
	span.SetTag(tracing.SpanTagUID, uid)

	return a.client.Upload(ctx, s3manager.UploadInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(archiveKey(folder, uid)),
		Body:        strings.NewReader(string(raw)),
		ContentType: aws.String("message/rfc822"),
	})
}

func (a *S3RawArchive) Fetch(ctx context.Context, folder string, uid uint32) ([]byte, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "S3RawArchive.Fetch")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag(tracing.SpanTagFolder, folder)
	span.SetTag(tracing.SpanTagUID, uid)

	return a.client.Download(ctx, a.bucket, archiveKey(folder, uid))
}

// archiveKey flattens the folder hierarchy into a path, so
// "INBOX.Sak 12-2021" and UID 7 become "raw/INBOX/Sak 12-2021/7.eml".
func archiveKey(folder string, uid uint32) string {
	path := strings.ReplaceAll(folder, ".", "/")
	return fmt.Sprintf("raw/%s/%d.eml", path, uid)
}

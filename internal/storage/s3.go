package storage

import (
	"context"
	"errors"
	"mime"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/recvault/vault-server-go/internal/config"
)

type s3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Provider serves objects from an S3-compatible bucket. File ids are
// object keys.
type S3Provider struct {
	client s3API
	bucket string
}

func NewS3Provider(ctx context.Context, cfg *config.Config) (*S3Provider, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.S3Region)}
	if cfg.S3AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Provider{client: client, bucket: cfg.S3Bucket}, nil
}

func mapS3Error(err error) error {
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		return &UpstreamError{Status: respErr.HTTPStatusCode()}
	}
	return err
}

func (p *S3Provider) Open(ctx context.Context, fileID, rangeHeader string) (*Object, error) {
	input := &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(fileID),
	}
	if rangeHeader != "" {
		input.Range = aws.String(rangeHeader)
	}

	out, err := p.client.GetObject(ctx, input)
	if err != nil {
		return nil, mapS3Error(err)
	}

	obj := &Object{
		Body:         out.Body,
		StatusCode:   http.StatusOK,
		ContentType:  aws.ToString(out.ContentType),
		ContentRange: aws.ToString(out.ContentRange),
		AcceptRanges: aws.ToString(out.AcceptRanges),
	}
	if obj.ContentRange != "" {
		obj.StatusCode = http.StatusPartialContent
	}
	if out.ContentLength != nil {
		obj.ContentLength = strconv.FormatInt(*out.ContentLength, 10)
	}
	return obj, nil
}

func (p *S3Provider) Stat(ctx context.Context, fileID string) (*FileInfo, error) {
	out, err := p.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(fileID),
	})
	if err != nil {
		return nil, mapS3Error(err)
	}

	info := FileInfo{
		ID:        fileID,
		Title:     path.Base(fileID),
		MimeType:  aws.ToString(out.ContentType),
		SizeBytes: out.ContentLength,
	}
	if info.MimeType == "" {
		info.MimeType = guessMimeType(fileID)
	}
	return &info, nil
}

// List treats the query as a key prefix.
func (p *S3Provider) List(ctx context.Context, opts ListOptions) (*FileList, error) {
	input := &s3.ListObjectsV2Input{
		Bucket:  aws.String(p.bucket),
		MaxKeys: aws.Int32(int32(clampPageSize(opts.PageSize))),
	}
	if prefix := strings.TrimSpace(opts.Query); prefix != "" {
		input.Prefix = aws.String(prefix)
	}
	if opts.PageToken != "" {
		input.ContinuationToken = aws.String(opts.PageToken)
	}

	out, err := p.client.ListObjectsV2(ctx, input)
	if err != nil {
		return nil, mapS3Error(err)
	}

	list := &FileList{Files: make([]FileInfo, 0, len(out.Contents))}
	for _, obj := range out.Contents {
		key := aws.ToString(obj.Key)
		list.Files = append(list.Files, FileInfo{
			ID:        key,
			Title:     path.Base(key),
			MimeType:  guessMimeType(key),
			SizeBytes: obj.Size,
		})
	}
	if token := aws.ToString(out.NextContinuationToken); token != "" {
		list.NextPageToken = &token
	}
	return list, nil
}

func guessMimeType(key string) string {
	if t := mime.TypeByExtension(path.Ext(key)); t != "" {
		return t
	}
	return defaultMimeType
}

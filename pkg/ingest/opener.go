package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// Opener resolves a dataset file name to a readable stream. A missing file
// is reported as ErrDatasetMissing.
type Opener interface {
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	// Location describes where files are read from, for logs.
	Location() string
}

// DirOpener reads files from a local directory.
type DirOpener struct {
	Dir string
}

func (d DirOpener) Location() string { return d.Dir }

func (d DirOpener) Open(_ context.Context, name string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(d.Dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrDatasetMissing, filepath.Join(d.Dir, name))
	}
	return f, err
}

// S3GetObjectAPI is the subset of the S3 client the opener needs.
type S3GetObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Opener reads files stored as objects under Bucket/Prefix.
type S3Opener struct {
	Client S3GetObjectAPI
	Bucket string
	Prefix string
}

// NewS3Opener builds an opener on the default AWS credential chain. An
// empty region keeps whatever the environment provides.
func NewS3Opener(ctx context.Context, bucket, prefix, region string) (*S3Opener, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &S3Opener{Client: s3.NewFromConfig(cfg), Bucket: bucket, Prefix: prefix}, nil
}

func (o *S3Opener) key(name string) string {
	return path.Join(strings.Trim(o.Prefix, "/"), name)
}

func (o *S3Opener) Location() string {
	return "s3://" + o.Bucket + "/" + strings.Trim(o.Prefix, "/")
}

func (o *S3Opener) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	out, err := o.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(o.Bucket),
		Key:    aws.String(o.key(name)),
	})
	if err != nil {
		var missing *types.NoSuchKey
		if errors.As(err, &missing) {
			return nil, fmt.Errorf("%w: s3://%s/%s", ErrDatasetMissing, o.Bucket, o.key(name))
		}
		return nil, fmt.Errorf("get s3://%s/%s: %w", o.Bucket, o.key(name), err)
	}
	return out.Body, nil
}

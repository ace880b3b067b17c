package cloudsearch

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/zenith-dev/zenith/internal/zerr"
)

// LocalFetcher resolves catalog paths that are already local filesystem
// paths (a single-node deployment with no object store). Fetch is a no-op:
// the path is returned unchanged and cleanup does nothing.
type LocalFetcher struct{}

func (LocalFetcher) Fetch(ctx context.Context, path string) (string, func(), error) {
	if _, err := os.Stat(path); err != nil {
		return "", nil, zerr.Wrap("cloudsearch: stat local object", err)
	}
	return path, func() {}, nil
}

// R2Fetcher downloads s3://bucket/key objects to a temporary local file so
// internal/doclake's Parquet readers, which require a local path, can read
// them. Each fetched file is removed by its cleanup func.
type R2Fetcher struct {
	EndpointURL     string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

func (f R2Fetcher) newClient(ctx context.Context) (*s3.Client, error) {
	region := f.Region
	if region == "" {
		region = "auto"
	}
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(f.AccessKeyID, f.SecretAccessKey, "")),
		config.WithEndpointResolverWithOptions(aws.EndpointResolverWithOptionsFunc(
			func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				return aws.Endpoint{URL: f.EndpointURL, SigningRegion: region, HostnameImmutable: true}, nil
			})),
	)
	if err != nil {
		return nil, zerr.Wrap("cloudsearch: load r2 config", err)
	}
	return s3.NewFromConfig(cfg, func(o *s3.Options) { o.UsePathStyle = true }), nil
}

// Fetch downloads an s3://bucket/key object to a temp file.
func (f R2Fetcher) Fetch(ctx context.Context, path string) (string, func(), error) {
	bucket, key, err := parseS3URI(path)
	if err != nil {
		return "", nil, err
	}
	client, err := f.newClient(ctx)
	if err != nil {
		return "", nil, err
	}
	out, err := client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)})
	if err != nil {
		return "", nil, zerr.Wrap("cloudsearch: get object "+path, err)
	}
	defer out.Body.Close()

	tmp, err := os.CreateTemp("", "cloudsearch-*.parquet")
	if err != nil {
		return "", nil, zerr.Wrap("cloudsearch: create temp file", err)
	}
	if _, err := io.Copy(tmp, out.Body); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", nil, zerr.Wrap("cloudsearch: download object", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", nil, zerr.Wrap("cloudsearch: close temp file", err)
	}
	return tmp.Name(), func() { _ = os.Remove(tmp.Name()) }, nil
}

func parseS3URI(uri string) (bucket, key string, err error) {
	const prefix = "s3://"
	if !strings.HasPrefix(uri, prefix) {
		return "", "", zerr.Wrapf(zerr.InvalidState, "cloudsearch: not an s3 uri: %s", uri)
	}
	rest := strings.TrimPrefix(uri, prefix)
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", zerr.Wrapf(zerr.InvalidState, "cloudsearch: malformed s3 uri: %s", uri)
	}
	return parts[0], parts[1], nil
}

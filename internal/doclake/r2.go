package doclake

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/zenith-dev/zenith/internal/zerr"
)

// R2Config describes an S3-compatible Cloudflare R2 endpoint to publish
// columnar objects to.
type R2Config struct {
	EndpointURL     string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
}

func (c R2Config) newClient(ctx context.Context) (*s3.Client, error) {
	region := c.Region
	if region == "" {
		region = "auto"
	}
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(c.AccessKeyID, c.SecretAccessKey, "")),
		config.WithEndpointResolverWithOptions(aws.EndpointResolverWithOptionsFunc(
			func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				return aws.Endpoint{URL: c.EndpointURL, SigningRegion: region, HostnameImmutable: true}, nil
			})),
	)
	if err != nil {
		return nil, zerr.Wrap("doclake: load r2 config", err)
	}
	return s3.NewFromConfig(cfg, func(o *s3.Options) { o.UsePathStyle = true }), nil
}

// WriteToR2 serializes the package's already-indexed symbols and chunks
// Parquet files to immutable objects under a canonical
// {visibility}/{ecosystem}/{package}/{version}/ prefix and returns their
// object URIs. Each call mints a fresh object key so a republish can never
// mutate a previously returned object.
func (s *Store) WriteToR2(ctx context.Context, r2 R2Config, ecosystem, pkg, version, visibility string) ([]string, error) {
	client, err := r2.newClient(ctx)
	if err != nil {
		return nil, err
	}

	dir := s.packagePath(ecosystem, pkg, version)
	candidates := []struct {
		localName string
		kind      string
	}{
		{symbolsFile, "symbols"},
		{chunksFile, "chunks"},
	}

	var uris []string
	for _, c := range candidates {
		localPath := dir + "/" + c.localName
		f, err := os.Open(localPath)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, zerr.Wrap("doclake: open "+c.kind+" parquet for publish", err)
		}
		key := fmt.Sprintf("%s/%s/%s/%s/%s-%s.parquet", visibility, ecosystem, pkg, version, c.kind, uuid.NewString())
		_, err = client.PutObject(ctx, &s3.PutObjectInput{
			Bucket: aws.String(r2.Bucket),
			Key:    aws.String(key),
			Body:   f,
		})
		closeErr := f.Close()
		if err != nil {
			return nil, zerr.Wrap(fmt.Sprintf("doclake: write %s to r2", c.kind), err)
		}
		if closeErr != nil {
			return nil, zerr.Wrap("doclake: close "+c.kind+" parquet after publish", closeErr)
		}
		uris = append(uris, fmt.Sprintf("s3://%s/%s", r2.Bucket, key))
	}
	return uris, nil
}

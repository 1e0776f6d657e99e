package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"didbase/internal/config"
	"didbase/internal/retriever"
	"didbase/internal/types"
	"didbase/internal/upstream"
)

// newFetcher builds a Fetcher for cfg.Upstream.BaseURL. The S3 client is
// only constructed for s3:// bases so that AWS credentials are never needed
// for the public endpoint.
func newFetcher(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*upstream.Fetcher, error) {
	up := cfg.Upstream

	policy := upstream.DefaultRetryPolicy()
	policy.MaxRetries = up.MaxRetries
	userAgent := up.UserAgent
	if userAgent != "" && !strings.Contains(userAgent, "/") {
		userAgent += "/" + cfg.Build.Version
	}
	httpT := upstream.NewHTTPTransport(upstream.NewBaseClient(&http.Client{}, "didbase", policy, userAgent))

	opts := []upstream.FetcherOption{
		upstream.WithTimeout(up.Timeout),
		upstream.WithTransport("http", httpT),
		upstream.WithTransport("https", httpT),
		upstream.WithTransport("ftp", upstream.NewFTPTransport(up.Timeout)),
	}

	u, err := url.Parse(up.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base url: %w", err)
	}
	if strings.EqualFold(u.Scheme, "s3") {
		client, err := newS3Client(ctx, cfg.AWS)
		if err != nil {
			return nil, err
		}
		opts = append(opts, upstream.WithTransport("s3", upstream.NewS3Transport(upstream.NewAWSS3Client(client))))
	}

	return upstream.NewFetcher(up.BaseURL, logger, opts...), nil
}

func newS3Client(ctx context.Context, cfg config.AWSConfig) (*s3.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
			o.UsePathStyle = true
		}
	}), nil
}

// newRetriever wires a Retriever from configuration.
func newRetriever(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*retriever.Retriever, error) {
	fetcher, err := newFetcher(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return retriever.New(retriever.Config{
		CacheDir: cfg.Cache.Dir,
		DMUF:     cfg.Upstream.DMUF,
	}, fetcher, types.RealClock{}, logger), nil
}

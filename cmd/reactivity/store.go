package main

import (
	"context"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"

	"github.com/vango-dev/reactivity/internal/config"
	rerrors "github.com/vango-dev/reactivity/internal/errors"
	"github.com/vango-dev/reactivity/pkg/persist"
)

// storeFlags override the persist section of the config.
type storeFlags struct {
	dir    string
	bucket string
	prefix string
	region string
}

func (f *storeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.dir, "dir", "", "Snapshot directory (default from reactivity.json)")
	cmd.Flags().StringVar(&f.bucket, "bucket", "", "S3 bucket; takes precedence over --dir")
	cmd.Flags().StringVar(&f.prefix, "prefix", "", "S3 key prefix")
	cmd.Flags().StringVar(&f.region, "region", "", "AWS region (default from the AWS environment)")
}

// apply merges the flags into cfg.
func (f *storeFlags) apply(cfg *config.Config) {
	if f.dir != "" {
		cfg.Persist.Dir = f.dir
		if f.bucket == "" {
			cfg.Persist.S3 = config.S3Config{}
		}
	}
	if f.bucket != "" {
		cfg.Persist.S3.Bucket = f.bucket
	}
	if f.prefix != "" {
		cfg.Persist.S3.Prefix = f.prefix
	}
	if f.region != "" {
		cfg.Persist.S3.Region = f.region
	}
}

// openStore returns the configured snapshot store and a description of it.
func openStore(ctx context.Context, cfg *config.Config) (persist.Store, string, error) {
	if cfg.UsesS3() {
		s3cfg := cfg.Persist.S3
		var opts []func(*awsconfig.LoadOptions) error
		if s3cfg.Region != "" {
			opts = append(opts, awsconfig.WithRegion(s3cfg.Region))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, "", rerrors.New("L404").Wrap(err)
		}
		store := persist.NewS3Store(s3.NewFromConfig(awsCfg), s3cfg.Bucket, s3cfg.Prefix)
		return store, "s3://" + s3cfg.Bucket + "/" + s3cfg.Prefix, nil
	}

	dir := cfg.PersistPath()
	if dir == "" {
		return nil, "", rerrors.New("L402")
	}
	store, err := persist.NewFileStore(dir)
	if err != nil {
		return nil, "", rerrors.New("P301").Wrap(err)
	}
	return store, store.Dir(), nil
}

package writer

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"gexflow/config"
	"gexflow/logger"
	"gexflow/models"
)

// S3Writer uploads parquet archives of computations to an S3 bucket.
type S3Writer struct {
	cfg         config.S3Config
	compression string
	client      *s3.Client
	log         *logger.Log
}

// NewS3Writer configures the AWS SDK and validates credentials up front so a
// misconfigured bucket fails at startup, not on the first upload.
func NewS3Writer(ctx context.Context, cfg config.S3Config, compression string) (*S3Writer, error) {
	log := logger.GetLogger()

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS configuration: %w", err)
	}

	creds, err := awsCfg.Credentials.Retrieve(ctx)
	if err != nil || !creds.HasKeys() {
		return nil, fmt.Errorf("aws credentials not found")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
	})

	log.WithComponent("s3_writer").WithFields(logger.Fields{
		"bucket":     cfg.Bucket,
		"region":     cfg.Region,
		"endpoint":   cfg.Endpoint,
		"path_style": cfg.PathStyle,
	}).Info("s3 writer initialized")

	return &S3Writer{cfg: cfg, compression: compression, client: client, log: log}, nil
}

// Write encodes the computation as parquet and uploads it.
func (w *S3Writer) Write(ctx context.Context, res *models.ComputationResult) error {
	log := w.log.WithComponent("s3_writer").WithFields(logger.Fields{
		"computation_id": res.ComputationID,
		"symbol":         res.Symbol,
	})

	data, err := EncodeParquet(res, w.compression)
	if err != nil {
		return err
	}

	key := ArchiveKey(res)
	if w.cfg.Prefix != "" {
		key = path.Join(w.cfg.Prefix, key)
	}

	input := &s3.PutObjectInput{
		Bucket:      aws.String(w.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/octet-stream"),
		Metadata: map[string]string{
			"content-type":   "parquet",
			"compression":    w.compression,
			"computation-id": res.ComputationID,
		},
	}

	if _, err := w.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("upload to S3 bucket %s: %w", w.cfg.Bucket, err)
	}

	log.WithFields(logger.Fields{
		"s3_key":    key,
		"file_size": len(data),
	}).Info("archive uploaded")

	return nil
}

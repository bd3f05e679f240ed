// Package lambdaboot provides shared Lambda cold-start bootstrap logic.
//
// The image Lambda needs AWS config, S3 upload storage, the DynamoDB content
// store, the SSM placeholder setting and startup logging. Each helper fatals
// on missing required configuration so misconfiguration surfaces at cold
// start rather than on the first request.
package lambdaboot

import (
	"context"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog/log"

	"github.com/fpang/post-image/internal/content"
	"github.com/fpang/post-image/internal/logging"
	"github.com/fpang/post-image/internal/settings"
	"github.com/fpang/post-image/internal/uploads"
)

// AWSClients holds the core AWS SDK clients used by the Lambda.
type AWSClients struct {
	Config aws.Config
	SSM    *ssm.Client
}

// InitAWS loads the default AWS config and returns it along with common clients.
func InitAWS() AWSClients {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load AWS config")
	}
	log.Debug().Str("region", cfg.Region).Msg("AWS config loaded")
	return AWSClients{
		Config: cfg,
		SSM:    ssm.NewFromConfig(cfg),
	}
}

// InitUploads creates S3-backed upload storage. The bucket name comes from
// bucketEnvVar and is required. The public base URL comes from baseURLEnvVar
// and defaults to the bucket's virtual-hosted URL. Variants are stored
// under prefix.
func InitUploads(cfg aws.Config, bucketEnvVar, baseURLEnvVar, prefix string) *uploads.S3Storage {
	bucket := os.Getenv(bucketEnvVar)
	if bucket == "" {
		log.Fatal().Str("envVar", bucketEnvVar).Msg("Bucket environment variable is required")
	}
	baseURL := os.Getenv(baseURLEnvVar)
	if baseURL == "" {
		baseURL = "https://" + bucket + ".s3." + cfg.Region + ".amazonaws.com/" + prefix
	}
	return uploads.NewS3Storage(s3.NewFromConfig(cfg), bucket, prefix, baseURL)
}

// InitContent creates the DynamoDB content store from the table named in
// tableEnvVar. Fatals if the env var is empty.
func InitContent(cfg aws.Config, tableEnvVar string) *content.DynamoStore {
	tableName := os.Getenv(tableEnvVar)
	if tableName == "" {
		log.Fatal().Str("envVar", tableEnvVar).Msg("DynamoDB table environment variable is required")
	}
	return content.NewDynamoStore(dynamodb.NewFromConfig(cfg), tableName)
}

// InitSettings creates the SSM-backed placeholder setting. The parameter
// path comes from paramEnvVar, falling back to settings.DefaultSSMParam.
// The value itself is read per request, never at cold start.
func InitSettings(ssmClient *ssm.Client, paramEnvVar string) *settings.SSMStore {
	return settings.NewSSMStore(ssmClient, logging.EnvOrDefault(paramEnvVar, settings.DefaultSSMParam))
}

// StartupLog is a convenience wrapper for the startup logger.
func StartupLog(name string, initStart time.Time) *logging.StartupLogger {
	return logging.NewStartupLogger(name).InitDuration(time.Since(initStart))
}

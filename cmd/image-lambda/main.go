// Package main provides the Lambda entry point for the image API.
//
// It serves internal/httpapi behind API Gateway (HTTP API, payload v2).
// Content comes from DynamoDB, the placeholder setting from SSM, and
// resized variants are cached in S3.
//
// Environment:
//
//	UPLOAD_BUCKET_NAME        bucket for resized variants (required)
//	UPLOAD_BASE_URL           public URL of the variant prefix
//	UPLOAD_PREFIX             key prefix for variants (default "variants")
//	CONTENT_TABLE_NAME        DynamoDB content table (required)
//	SSM_PLACEHOLDER_PARAM     SSM parameter holding the placeholder setting
//	PLACEHOLDER_URL           public URL of the bundled placeholder
//	DEFAULT_IMAGE_SIZE        size used when a request has none (default "full")
//	DEFAULT_PLACEHOLDER_SIZE  size of the fallback placeholder (default "full")
//	ORIGIN_VERIFY_SECRET      required x-origin-verify value, if set
package main

import (
	"context"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/fpang/post-image/internal/assets"
	"github.com/fpang/post-image/internal/httpapi"
	"github.com/fpang/post-image/internal/imagesize"
	"github.com/fpang/post-image/internal/lambdaboot"
	"github.com/fpang/post-image/internal/logging"
	"github.com/fpang/post-image/internal/metrics"
	"github.com/fpang/post-image/internal/resize"
	"github.com/fpang/post-image/internal/resolve"
	"github.com/fpang/post-image/internal/uploads"
)

// placeholderDir is where the bundled placeholder is unpacked for the
// editor. /tmp is the only writable path in Lambda.
const placeholderDir = "/tmp/post-image"

var handler *httpapi.Handler

func init() {
	initStart := time.Now()
	logging.InitJSON()

	clients := lambdaboot.InitAWS()
	storage := lambdaboot.InitUploads(clients.Config, "UPLOAD_BUCKET_NAME", "UPLOAD_BASE_URL", logging.EnvOrDefault("UPLOAD_PREFIX", "variants"))
	store := lambdaboot.InitContent(clients.Config, "CONTENT_TABLE_NAME")
	settingsStore := lambdaboot.InitSettings(clients.SSM, "SSM_PLACEHOLDER_PARAM")

	fs := afero.NewOsFs()
	cfg := resolve.DefaultConfig(placeholderDir, "")
	if _, err := assets.EnsurePlaceholder(fs, cfg.PlaceholderPath); err != nil {
		log.Fatal().Err(err).Msg("Failed to unpack placeholder")
	}
	cfg.PlaceholderURL = os.Getenv("PLACEHOLDER_URL")
	if cfg.PlaceholderURL == "" {
		cfg.PlaceholderURL = publishPlaceholder(storage)
	}
	cfg.DefaultImageSize = imagesize.Parse(logging.EnvOrDefault("DEFAULT_IMAGE_SIZE", imagesize.Full))
	cfg.DefaultPlaceholderSize = imagesize.Parse(logging.EnvOrDefault("DEFAULT_PLACEHOLDER_SIZE", imagesize.Full))

	emitter := metrics.NewEmitter(metrics.Namespace, nil)
	cache := resize.NewCache(storage, resize.NewDrawEditor(fs), imagesize.DefaultPresets(), emitter)
	resolver := resolve.New(store, settingsStore, cache, cfg)
	originSecret := os.Getenv("ORIGIN_VERIFY_SECRET")

	handler = httpapi.NewHandler(resolver, httpapi.Options{
		OriginVerifySecret: originSecret,
		Metrics:            emitter,
		Version:            commitHash,
	})

	effective := resolver.Config()
	lambdaboot.StartupLog("image-lambda", initStart).
		CommitHash(commitHash).
		BuildTime(buildTime).
		S3Bucket("uploads", os.Getenv("UPLOAD_BUCKET_NAME")).
		DynamoTable("content", os.Getenv("CONTENT_TABLE_NAME")).
		SSMParam("placeholder", settingsStore.Param()).
		Feature("originVerify", originSecret != "").
		Config("uploadBaseURL", storage.BaseURL()).
		Config("placeholderURL", effective.PlaceholderURL).
		Config("defaultImageSize", effective.DefaultImageSize.String()).
		Config("defaultPlaceholderSize", effective.DefaultPlaceholderSize.String()).
		Log()
}

// publishPlaceholder uploads the bundled placeholder next to the variants
// so the unresized fallback has a public URL, and returns that URL.
func publishPlaceholder(storage uploads.Storage) string {
	ctx := context.Background()
	name := resolve.PlaceholderFilename
	exists, err := storage.Exists(ctx, name)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to check published placeholder")
	}
	if !exists {
		if err := storage.Write(ctx, name, assets.DefaultPlaceholder, assets.DefaultPlaceholderMIMEType); err != nil {
			log.Fatal().Err(err).Msg("Failed to publish placeholder")
		}
		log.Info().Str("url", storage.URL(name)).Msg("Published default placeholder")
	}
	return storage.URL(name)
}

func main() {
	adapter := httpadapter.NewV2(handler)
	lambda.Start(adapter.ProxyWithContext)
}

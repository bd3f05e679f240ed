package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/fpang/post-image/internal/assets"
	"github.com/fpang/post-image/internal/content"
	"github.com/fpang/post-image/internal/imagesize"
	"github.com/fpang/post-image/internal/metrics"
	"github.com/fpang/post-image/internal/resize"
	"github.com/fpang/post-image/internal/resolve"
	"github.com/fpang/post-image/internal/settings"
	"github.com/fpang/post-image/internal/uploads"
)

// envPrefix is the prefix for environment overrides, e.g.
// POST_IMAGE_UPLOAD_DIR.
const envPrefix = "POST_IMAGE"

// config is the CLI configuration, merged from flags, POST_IMAGE_* env
// vars and the optional YAML config file, in that order of precedence.
type config struct {
	Content         string            `mapstructure:"content"`
	Table           string            `mapstructure:"table"`
	SSMParam        string            `mapstructure:"ssm_param"`
	Placeholder     string            `mapstructure:"placeholder"`
	PlaceholderEnv  string            `mapstructure:"placeholder_env"`
	ThemeDir        string            `mapstructure:"theme_dir"`
	ThemeURL        string            `mapstructure:"theme_url"`
	UploadDir       string            `mapstructure:"upload_dir"`
	UploadURL       string            `mapstructure:"upload_url"`
	DefaultSize     string            `mapstructure:"default_size"`
	PlaceholderSize string            `mapstructure:"placeholder_size"`
	LogLevel        string            `mapstructure:"log_level"`
	Metrics         bool              `mapstructure:"metrics"`
	Presets         imagesize.Presets `mapstructure:"presets"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("theme_dir", "./theme")
	v.SetDefault("theme_url", "http://localhost:8080/theme")
	v.SetDefault("upload_dir", "./uploads")
	v.SetDefault("upload_url", "http://localhost:8080/uploads")
	v.SetDefault("default_size", imagesize.Full)
	v.SetDefault("placeholder_size", imagesize.Full)
	v.SetDefault("log_level", "info")
}

// loadConfig reads the config file (if any) and unmarshals the merged
// configuration.
func loadConfig(v *viper.Viper, fs afero.Fs, cfgFile string) (*config, error) {
	v.SetFs(fs)
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(".post-image")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	for _, s := range []string{cfg.DefaultSize, cfg.PlaceholderSize} {
		if !imagesize.IsAcceptable(imagesize.Parse(s)) {
			return nil, fmt.Errorf("invalid size %q", s)
		}
	}
	return &cfg, nil
}

// presets overlays configured preset dimensions on the defaults.
func (c *config) presets() imagesize.Presets {
	p := imagesize.DefaultPresets()
	for name, d := range c.Presets {
		p[strings.ToLower(name)] = d
	}
	return p
}

// environment holds everything built from config for one command run.
type environment struct {
	resolver *resolve.Resolver
	store    content.Store
	storage  *uploads.FSStorage
}

// newEnvironment builds the resolver stack. AWS config is only loaded when
// a DynamoDB table or SSM parameter is configured.
func newEnvironment(ctx context.Context, fs afero.Fs, cfg *config, metricsOut io.Writer) (*environment, error) {
	var awsCfg *aws.Config
	loadAWS := func() (aws.Config, error) {
		if awsCfg == nil {
			c, err := awsconfig.LoadDefaultConfig(ctx)
			if err != nil {
				return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
			}
			awsCfg = &c
		}
		return *awsCfg, nil
	}

	var store content.Store
	switch {
	case cfg.Table != "":
		c, err := loadAWS()
		if err != nil {
			return nil, err
		}
		store = content.NewDynamoStore(dynamodb.NewFromConfig(c), cfg.Table)
	case cfg.Content != "":
		s, err := content.LoadFixture(fs, cfg.Content)
		if err != nil {
			return nil, err
		}
		store = s
	default:
		log.Warn().Msg("No content source configured, using an empty store")
		store = content.NewMemoryStore()
	}

	var settingsStore settings.Store = settings.Static(cfg.Placeholder)
	switch {
	case cfg.SSMParam != "":
		c, err := loadAWS()
		if err != nil {
			return nil, err
		}
		settingsStore = settings.NewSSMStore(ssm.NewFromConfig(c), cfg.SSMParam)
	case cfg.PlaceholderEnv != "":
		settingsStore = settings.Env(cfg.PlaceholderEnv)
	}

	rcfg := resolve.DefaultConfig(cfg.ThemeDir, cfg.ThemeURL)
	rcfg.DefaultImageSize = imagesize.Parse(cfg.DefaultSize)
	rcfg.DefaultPlaceholderSize = imagesize.Parse(cfg.PlaceholderSize)
	if _, err := assets.EnsurePlaceholder(fs, rcfg.PlaceholderPath); err != nil {
		return nil, err
	}

	emitter := metrics.Discard()
	if cfg.Metrics && metricsOut != nil {
		emitter = metrics.NewEmitter(metrics.Namespace, metricsOut)
	}

	storage := uploads.NewFSStorage(fs, cfg.UploadDir, cfg.UploadURL)
	cache := resize.NewCache(storage, resize.NewDrawEditor(fs), cfg.presets(), emitter)

	log.Debug().
		Str("theme_dir", cfg.ThemeDir).
		Str("upload_dir", cfg.UploadDir).
		Stringer("default_size", rcfg.DefaultImageSize).
		Stringer("placeholder_size", rcfg.DefaultPlaceholderSize).
		Msg("Resolver configured")

	return &environment{
		resolver: resolve.New(store, settingsStore, cache, rcfg),
		store:    store,
		storage:  storage,
	}, nil
}

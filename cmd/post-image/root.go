package main

import (
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fpang/post-image/internal/logging"
	"github.com/fpang/post-image/internal/resolve"
)

// AppFs is the filesystem used for content fixtures, theme assets and the
// upload directory. Tests replace it with an in-memory filesystem.
var AppFs afero.Fs = afero.NewOsFs()

// cli carries state shared by the subcommands of one root command.
type cli struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config
}

func newRootCmd() *cobra.Command {
	c := &cli{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:   "post-image",
		Short: "Resolve display images for content items",
		Long: `post-image picks the display image for a content item: an explicit
attachment, the featured image, a meta field, page-builder data or the first
image in the body, falling back to a placeholder. Resized variants are cached
in the upload directory.

Examples:
  post-image resolve --content content.json --item 7 --size medium
  post-image placeholder --size large
  post-image resize ./theme/images/banner.png --size 300x200
  post-image serve --content content.json --addr :8080`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(c.v, AppFs, c.cfgFile)
			if err != nil {
				return err
			}
			logging.Init()
			logging.SetLevel(cfg.LogLevel)
			c.cfg = cfg
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&c.cfgFile, "config", "", "config file (default is ./.post-image.yaml)")
	flags.String("content", "", "JSON content fixture")
	flags.String("table", "", "DynamoDB content table (overrides --content)")
	flags.String("ssm-param", "", "SSM parameter holding the placeholder setting (overrides --placeholder)")
	flags.String("placeholder", "", "placeholder setting: attachment URL or id")
	flags.String("placeholder-env", "", "env var read for the placeholder setting on every request (overrides --placeholder)")
	flags.String("theme-dir", "", "theme directory holding images/"+resolve.PlaceholderFilename)
	flags.String("theme-url", "", "public URL of the theme directory")
	flags.String("upload-dir", "", "directory resized variants are written to")
	flags.String("upload-url", "", "public URL of the upload directory")
	flags.String("default-size", "", "size used when a request has none")
	flags.String("placeholder-size", "", "size of the fallback placeholder")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.Bool("metrics", false, "write EMF metrics to stderr")

	for key, flag := range map[string]string{
		"content":          "content",
		"table":            "table",
		"ssm_param":        "ssm-param",
		"placeholder":      "placeholder",
		"placeholder_env":  "placeholder-env",
		"theme_dir":        "theme-dir",
		"theme_url":        "theme-url",
		"upload_dir":       "upload-dir",
		"upload_url":       "upload-url",
		"default_size":     "default-size",
		"placeholder_size": "placeholder-size",
		"log_level":        "log-level",
		"metrics":          "metrics",
	} {
		_ = c.v.BindPFlag(key, flags.Lookup(flag))
	}
	setDefaults(c.v)

	rootCmd.AddCommand(
		newResolveCmd(c),
		newTagCmd(c),
		newPlaceholderCmd(c),
		newResizeCmd(c),
		newServeCmd(c),
		newImportCmd(c),
		newVersionCmd(),
	)
	return rootCmd
}

// environment builds the resolver stack from the loaded config.
func (c *cli) environment(cmd *cobra.Command) (*environment, error) {
	return newEnvironment(cmd.Context(), AppFs, c.cfg, cmd.ErrOrStderr())
}

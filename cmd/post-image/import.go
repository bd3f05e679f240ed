package main

import (
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/post-image/internal/content"
)

func newImportCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "import",
		Short: "Load the --content fixture into the --table DynamoDB table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.cfg.Content == "" || c.cfg.Table == "" {
				return fmt.Errorf("import needs both --content and --table")
			}
			fx, err := content.ReadFixture(AppFs, c.cfg.Content)
			if err != nil {
				return err
			}

			awsCfg, err := awsconfig.LoadDefaultConfig(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to load AWS config: %w", err)
			}
			store := content.NewDynamoStore(dynamodb.NewFromConfig(awsCfg), c.cfg.Table)
			if err := store.Seed(cmd.Context(), fx); err != nil {
				return err
			}

			log.Info().
				Str("table", c.cfg.Table).
				Int("items", len(fx.Items)).
				Int("attachments", len(fx.Attachments)).
				Msg("Content imported")
			return nil
		},
	}
}

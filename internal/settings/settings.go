// Package settings reads the externally configured placeholder image.
//
// The setting holds either an attachment reference (its URL or numeric id)
// or a raw file path. It may change at any time, so every implementation
// reads it fresh on each call.
package settings

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/rs/zerolog/log"
)

// Store supplies the current placeholder setting. An empty string means
// the setting is unset.
type Store interface {
	PlaceholderSetting(ctx context.Context) (string, error)
}

// Static is a fixed setting value.
type Static string

// PlaceholderSetting implements Store.
func (s Static) PlaceholderSetting(context.Context) (string, error) {
	return string(s), nil
}

// Env reads the setting from an environment variable on every call.
type Env string

// PlaceholderSetting implements Store.
func (e Env) PlaceholderSetting(context.Context) (string, error) {
	return os.Getenv(string(e)), nil
}

// DefaultSSMParam is the parameter path used when none is configured.
const DefaultSSMParam = "/post-image/prod/image-placeholder"

// ssmAPI is the subset of the SSM client used by SSMStore.
type ssmAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// SSMStore reads the setting from SSM Parameter Store on every call.
// A missing parameter is treated as unset.
type SSMStore struct {
	client ssmAPI
	param  string
}

// NewSSMStore creates an SSMStore for the given parameter path.
func NewSSMStore(client *ssm.Client, param string) *SSMStore {
	if param == "" {
		param = DefaultSSMParam
	}
	return &SSMStore{client: client, param: param}
}

// Param returns the parameter path being read.
func (s *SSMStore) Param() string {
	return s.param
}

// PlaceholderSetting implements Store.
func (s *SSMStore) PlaceholderSetting(ctx context.Context) (string, error) {
	start := time.Now()
	result, err := s.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           &s.param,
		WithDecryption: aws.Bool(false),
	})
	if err != nil {
		var notFound *ssmtypes.ParameterNotFound
		if errors.As(err, &notFound) {
			log.Debug().Str("param", s.param).Msg("Placeholder parameter not set")
			return "", nil
		}
		return "", fmt.Errorf("SSM GetParameter %s: %w", s.param, err)
	}
	if result.Parameter == nil || result.Parameter.Value == nil {
		return "", nil
	}
	log.Debug().
		Str("param", s.param).
		Dur("elapsed", time.Since(start)).
		Msg("Placeholder setting loaded from SSM")
	return *result.Parameter.Value, nil
}

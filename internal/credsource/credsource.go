// Package credsource resolves which AWS credentials a client signs requests with.
//
// The result is a list of config.LoadOptions functions that the caller passes to
// config.LoadDefaultConfig. Returning no credential option leaves the SDK default
// chain in charge (environment, shared files, SSO, container and instance roles).
//
// Secret values are never logged; only the source name and secret ID are.
package credsource

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3conn/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3conn/s3types"
)

// SecretsManagerSource is the credential Source string for key pairs read from Secrets Manager.
const SecretsManagerSource = "SecretsManagerProvider"

// Result is a resolved credential source.
type Result struct {
	// Source is the source that was selected. CredentialSourceAuto means the
	// SDK default chain.
	Source s3types.CredentialSource

	// DefaultChain is true when credentials are left to the SDK default chain.
	DefaultChain bool

	// LoadOptions configure credentials for config.LoadDefaultConfig
	LoadOptions []func(*config.LoadOptions) error
}

// Resolver selects a credential source from a client configuration.
type Resolver struct {
	logger *slog.Logger

	// newSecretsAPI builds a Secrets Manager client when the configuration has none.
	newSecretsAPI func(ctx context.Context, region string) (s3types.SecretsAPI, error)
}

// New creates a Resolver.
func New(logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Resolver{
		logger:        logger,
		newSecretsAPI: defaultSecretsAPI,
	}
}

// Resolve picks the credential source.
//
// For CredentialSourceAuto the order is: static keys when both are set, then the
// named profile, then the SDK default chain. Setting only one of the two static
// keys is an error for every source.
//
// A secret ID selects CredentialSourceSecretsManager under the auto source and
// conflicts with static keys and with any other explicit source.
func (r *Resolver) Resolve(ctx context.Context, cfg *s3types.ClientConfig) (*Result, error) {
	if !cfg.CredentialSource.Valid() {
		return nil, invalid(fmt.Sprintf("unknown credential source %q", cfg.CredentialSource))
	}
	if (cfg.AccessKey == "") != (cfg.SecretKey == "") {
		return nil, invalid("access key and secret key must be set together")
	}

	source := cfg.CredentialSource
	auto := source == "" || source == s3types.CredentialSourceAuto
	if cfg.SecretID != "" {
		switch {
		case cfg.AccessKey != "":
			return nil, invalid("secret ID cannot be combined with static keys")
		case auto:
			source = s3types.CredentialSourceSecretsManager
		case source != s3types.CredentialSourceSecretsManager:
			return nil, invalid(fmt.Sprintf("secret ID conflicts with credential source %q", source))
		}
	} else if auto {
		source = autoSource(cfg)
	}

	var (
		res *Result
		err error
	)
	switch source {
	case s3types.CredentialSourceStatic:
		res, err = r.static(cfg)
	case s3types.CredentialSourceEnvironment:
		res, err = r.environment()
	case s3types.CredentialSourceProfile:
		res, err = r.profile(cfg)
	case s3types.CredentialSourceSecretsManager:
		res, err = r.secretsManager(ctx, cfg)
	case s3types.CredentialSourceAnonymous:
		res = &Result{LoadOptions: []func(*config.LoadOptions) error{
			config.WithCredentialsProvider(aws.AnonymousCredentials{}),
		}}
	default:
		res = &Result{DefaultChain: true}
	}
	if err != nil {
		return nil, err
	}

	if res.DefaultChain {
		source = s3types.CredentialSourceAuto
		r.logger.DebugContext(ctx, "using default AWS credential chain")
	} else {
		r.logger.DebugContext(ctx, "resolved credential source", "source", string(source))
	}
	res.Source = source
	return res, nil
}

func autoSource(cfg *s3types.ClientConfig) s3types.CredentialSource {
	switch {
	case cfg.AccessKey != "" && cfg.SecretKey != "":
		return s3types.CredentialSourceStatic
	case cfg.Profile != "":
		return s3types.CredentialSourceProfile
	default:
		return s3types.CredentialSourceAuto
	}
}

func (r *Resolver) static(cfg *s3types.ClientConfig) (*Result, error) {
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, invalid("static credentials need an access key and a secret key")
	}
	return withProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, cfg.SessionToken)), nil
}

func (r *Resolver) environment() (*Result, error) {
	env, err := config.NewEnvConfig()
	if err != nil {
		return nil, errors.NewError("resolveCredentials", fmt.Errorf("%w: %w", errors.ErrInvalidCredentials, err))
	}
	if !env.Credentials.HasKeys() {
		return nil, invalid("AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY are not set")
	}
	return withProvider(credentials.StaticCredentialsProvider{Value: env.Credentials}), nil
}

func (r *Resolver) profile(cfg *s3types.ClientConfig) (*Result, error) {
	if cfg.Profile == "" {
		return nil, invalid("profile credential source needs a profile name")
	}
	return &Result{LoadOptions: []func(*config.LoadOptions) error{
		config.WithSharedConfigProfile(cfg.Profile),
	}}, nil
}

func (r *Resolver) secretsManager(ctx context.Context, cfg *s3types.ClientConfig) (*Result, error) {
	if cfg.SecretID == "" {
		return nil, invalid("secretsmanager credential source needs a secret ID")
	}

	api := cfg.SecretsAPI
	if api == nil {
		var err error
		api, err = r.newSecretsAPI(ctx, cfg.Region)
		if err != nil {
			return nil, errors.NewError("resolveCredentials", fmt.Errorf("%w: %w", errors.ErrInvalidCredentials, err)).
				WithMessage("failed to create Secrets Manager client")
		}
	}

	provider := &SecretProvider{API: api, SecretID: cfg.SecretID}
	// Fetch once so a bad secret fails construction instead of the first request.
	if _, err := provider.Retrieve(ctx); err != nil {
		r.logger.ErrorContext(ctx, "failed to read credentials secret", "secret_id", cfg.SecretID, "error", err)
		return nil, errors.NewError("resolveCredentials", err)
	}
	r.logger.InfoContext(ctx, "credentials read from Secrets Manager", "secret_id", cfg.SecretID)

	return withProvider(aws.NewCredentialsCache(provider)), nil
}

// SecretProvider is an aws.CredentialsProvider backed by a Secrets Manager
// secret holding {"access_key_id", "secret_access_key", "session_token"}.
type SecretProvider struct {
	API      s3types.SecretsAPI
	SecretID string
}

type secretPayload struct {
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
	SessionToken    string `json:"session_token"`
}

// Retrieve implements aws.CredentialsProvider.
func (p *SecretProvider) Retrieve(ctx context.Context) (aws.Credentials, error) {
	out, err := p.API.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(p.SecretID),
	})
	if err != nil {
		return aws.Credentials{}, fmt.Errorf("%w: secret %q: %w", errors.ErrInvalidCredentials, p.SecretID, err)
	}

	var raw []byte
	switch {
	case out.SecretString != nil:
		raw = []byte(*out.SecretString)
	case out.SecretBinary != nil:
		raw = out.SecretBinary
	default:
		return aws.Credentials{}, fmt.Errorf("%w: secret %q has no value", errors.ErrInvalidCredentials, p.SecretID)
	}

	var payload secretPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		// The decode error is dropped so no part of the secret ends up in messages.
		return aws.Credentials{}, fmt.Errorf("%w: secret %q is not a JSON key pair", errors.ErrInvalidCredentials, p.SecretID)
	}
	if strings.TrimSpace(payload.AccessKeyID) == "" || strings.TrimSpace(payload.SecretAccessKey) == "" {
		return aws.Credentials{}, fmt.Errorf("%w: secret %q lacks access_key_id or secret_access_key",
			errors.ErrInvalidCredentials, p.SecretID)
	}

	return aws.Credentials{
		AccessKeyID:     payload.AccessKeyID,
		SecretAccessKey: payload.SecretAccessKey,
		SessionToken:    payload.SessionToken,
		Source:          SecretsManagerSource,
	}, nil
}

func defaultSecretsAPI(ctx context.Context, region string) (s3types.SecretsAPI, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return secretsmanager.NewFromConfig(awsCfg), nil
}

func withProvider(p aws.CredentialsProvider) *Result {
	return &Result{LoadOptions: []func(*config.LoadOptions) error{
		config.WithCredentialsProvider(p),
	}}
}

func invalid(msg string) error {
	return errors.NewError("resolveCredentials", errors.ErrInvalidCredentials).WithMessage(msg)
}

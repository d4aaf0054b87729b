// Package config loads s3conn client settings from a YAML file and
// S3CONN_* environment variables.
//
// Environment variables override file values. Fields left unset by both
// take their env-default value.
//
//	settings, err := config.Load("s3conn.yaml")
//	if err != nil {
//		return err
//	}
//	logger, err := settings.Logger(os.Stderr)
//	if err != nil {
//		return err
//	}
//	client, err := s3conn.New(ctx, append(settings.Options(), s3conn.WithLogger(logger))...)
package config

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/ilyakaznacheev/cleanenv"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3conn"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3conn/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3conn/s3types"
)

// Log formats accepted by Settings.Logger.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Settings is the file and environment representation of a client configuration.
type Settings struct {
	AWS AWS `yaml:"aws" json:"aws"`
	Log Log `yaml:"log" json:"log"`
}

// AWS holds credentials and transport settings.
type AWS struct {
	AccessKey        string                   `yaml:"access_key" json:"access_key" env:"S3CONN_ACCESS_KEY" env-description:"static access key ID"`
	SecretKey        string                   `yaml:"secret_key" json:"secret_key" env:"S3CONN_SECRET_KEY" env-description:"static secret access key"`
	SessionToken     string                   `yaml:"session_token" json:"session_token" env:"S3CONN_SESSION_TOKEN" env-description:"session token for temporary credentials"`
	Region           string                   `yaml:"region" json:"region" env:"S3CONN_REGION" env-description:"AWS region"`
	CredentialSource s3types.CredentialSource `yaml:"credential_source" json:"credential_source" env:"S3CONN_CREDENTIAL_SOURCE" env-default:"auto" env-description:"auto, static, environment, profile, secretsmanager or anonymous"`
	Profile          string                   `yaml:"profile" json:"profile" env:"S3CONN_PROFILE" env-description:"shared config profile"`
	SecretID         string                   `yaml:"secret_id" json:"secret_id" env:"S3CONN_SECRET_ID" env-description:"Secrets Manager secret holding the key pair"`
	Endpoint         string                   `yaml:"endpoint" json:"endpoint" env:"S3CONN_ENDPOINT" env-description:"custom S3 endpoint URL"`
	ForcePathStyle   bool                     `yaml:"force_path_style" json:"force_path_style" env:"S3CONN_FORCE_PATH_STYLE" env-description:"use path-style addressing"`
	MaxRetries       int                      `yaml:"max_retries" json:"max_retries" env:"S3CONN_MAX_RETRIES" env-default:"3" env-description:"maximum request attempts"`
	Timeout          time.Duration            `yaml:"timeout" json:"timeout" env:"S3CONN_TIMEOUT" env-description:"HTTP client timeout"`
}

// Log holds logger settings.
type Log struct {
	Level  string `yaml:"level" json:"level" env:"S3CONN_LOG_LEVEL" env-default:"info" env-description:"debug, info, warn or error"`
	Format string `yaml:"format" json:"format" env:"S3CONN_LOG_FORMAT" env-default:"text" env-description:"text or json"`
}

// Load reads settings from the YAML file at path and the environment.
// An empty path reads the environment only.
func Load(path string) (*Settings, error) {
	var s Settings
	if path == "" {
		if err := cleanenv.ReadEnv(&s); err != nil {
			return nil, loadError(path, err)
		}
	} else if err := cleanenv.ReadConfig(path, &s); err != nil {
		return nil, loadError(path, err)
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// LoadFS reads settings from a YAML or JSON file on fs, then applies the
// environment.
func LoadFS(fs billy.Filesystem, path string) (*Settings, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, loadError(path, err)
	}
	defer f.Close() //nolint:errcheck // read-only

	var s Settings
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = cleanenv.ParseYAML(f, &s)
	case ".json":
		err = cleanenv.ParseJSON(f, &s)
	default:
		err = fmt.Errorf("unsupported config file type %q", ext)
	}
	if err != nil {
		return nil, loadError(path, err)
	}
	if err := cleanenv.ReadEnv(&s); err != nil {
		return nil, loadError(path, err)
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Usage returns a description of every supported environment variable.
func Usage() string {
	var s Settings
	desc, err := cleanenv.GetDescription(&s, nil)
	if err != nil {
		return ""
	}
	return desc
}

// Validate checks the values that cannot be checked by type alone.
func (s *Settings) Validate() error {
	if !s.AWS.CredentialSource.Valid() {
		return invalid("unknown credential source %q", s.AWS.CredentialSource)
	}
	if s.AWS.CredentialSource == s3types.CredentialSourceSecretsManager && s.AWS.SecretID == "" {
		return invalid("secret_id is required for credential source %q", s.AWS.CredentialSource)
	}
	if (s.AWS.AccessKey == "") != (s.AWS.SecretKey == "") {
		return invalid("access_key and secret_key must be set together")
	}
	if s.AWS.SecretID != "" {
		switch s.AWS.CredentialSource {
		case "", s3types.CredentialSourceAuto, s3types.CredentialSourceSecretsManager:
		default:
			return invalid("secret_id conflicts with credential source %q", s.AWS.CredentialSource)
		}
		if s.AWS.AccessKey != "" {
			return invalid("secret_id cannot be combined with access_key")
		}
	}
	if s.AWS.MaxRetries < 0 {
		return invalid("max_retries must not be negative")
	}
	if s.AWS.Timeout < 0 {
		return invalid("timeout must not be negative")
	}
	if _, err := parseLevel(s.Log.Level); err != nil {
		return err
	}
	switch s.Log.Format {
	case FormatText, FormatJSON:
	default:
		return invalid("unknown log format %q", s.Log.Format)
	}
	return nil
}

// Options converts the settings into client options. Unset fields produce
// no option so the client defaults stay in effect.
func (s *Settings) Options() []s3types.Option {
	a := s.AWS
	var opts []s3types.Option
	if a.Region != "" {
		opts = append(opts, s3conn.WithRegion(a.Region))
	}
	if a.CredentialSource != "" {
		opts = append(opts, s3conn.WithCredentialSource(a.CredentialSource))
	}
	if a.AccessKey != "" || a.SecretKey != "" {
		opts = append(opts, s3conn.WithCredentials(a.AccessKey, a.SecretKey))
	}
	if a.SessionToken != "" {
		opts = append(opts, s3conn.WithSessionToken(a.SessionToken))
	}
	if a.Profile != "" {
		opts = append(opts, s3conn.WithProfile(a.Profile))
	}
	if a.SecretID != "" {
		opts = append(opts, s3conn.WithSecretID(a.SecretID))
	}
	if a.Endpoint != "" {
		opts = append(opts, s3conn.WithEndpoint(a.Endpoint))
	}
	if a.ForcePathStyle {
		opts = append(opts, s3conn.WithForcePathStyle(true))
	}
	if a.MaxRetries > 0 {
		opts = append(opts, s3conn.WithMaxRetries(a.MaxRetries))
	}
	if a.Timeout > 0 {
		opts = append(opts, s3conn.WithTimeout(a.Timeout))
	}
	return opts
}

// Logger builds a slog.Logger writing to w in the configured format and level.
func (s *Settings) Logger(w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(s.Log.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}

	switch s.Log.Format {
	case FormatJSON:
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case FormatText, "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, invalid("unknown log format %q", s.Log.Format)
	}
}

func parseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if name == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return 0, invalid("unknown log level %q", name)
	}
	return level, nil
}

func invalid(format string, args ...any) error {
	return errors.NewError("config", fmt.Errorf("%w: "+format, append([]any{errors.ErrInvalidInput}, args...)...))
}

func loadError(path string, err error) error {
	return errors.NewError("config", err).WithMessage(fmt.Sprintf("failed to load settings from %q", path))
}

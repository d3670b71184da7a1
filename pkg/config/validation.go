package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/marmos91/dittoshare/pkg/share"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate checks struct tags first, then the rules tags cannot express.
// Share.Root is not required here: commands that open a share check it.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}
	return validateCustomRules(cfg)
}

func validateCustomRules(cfg *Config) error {
	if cfg.Share.Name != "" && !share.ValidateFilename(cfg.Share.Name, cfg.Share.StrangePaths) {
		return fmt.Errorf("share.name: %q contains invalid characters", cfg.Share.Name)
	}

	switch cfg.Metadata.Type {
	case "postgres":
		p := cfg.Metadata.Postgres
		if p.DSN == "" && (p.Host == "" || p.Database == "" || p.User == "") {
			return fmt.Errorf("metadata.postgres: dsn or host, database and user are required")
		}
	}

	if cfg.Blob.Type == "s3" && cfg.Blob.S3.Bucket == "" {
		return fmt.Errorf("blob.s3.bucket: required when blob.type is s3")
	}
	if (cfg.Blob.S3.AccessKeyID == "") != (cfg.Blob.S3.SecretAccessKey == "") {
		return fmt.Errorf("blob.s3: access_key_id and secret_access_key must be set together")
	}
	if cfg.Metadata.Type == "memory" && cfg.Blob.Type != "memory" {
		return fmt.Errorf("metadata.type memory requires blob.type memory")
	}
	return nil
}

// formatValidationError reports the first failing field.
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		e := validationErrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
			e.Namespace(), e.Tag(), e.Value())
	}
	return err
}

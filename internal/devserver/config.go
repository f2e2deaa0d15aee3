package devserver

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds the dev sync server's settings.
//
// Users maps usernames to bcrypt password hashes. S3 settings are optional:
// when Endpoint is empty, attachment uploads fall back to the server's own
// /uploads endpoint writing into UploadDir.
type Config struct {
	Addr      string        `mapstructure:"addr"`
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`

	Users map[string]string `mapstructure:"users"`

	S3Region   string `mapstructure:"s3_region"`
	S3Endpoint string `mapstructure:"s3_endpoint"`
	S3Bucket   string `mapstructure:"s3_bucket"`
	S3User     string `mapstructure:"s3_user"`
	S3Password string `mapstructure:"s3_password"`

	UploadDir string `mapstructure:"upload_dir"`
}

func DefaultConfig() *Config {
	return &Config{
		Addr:      ":8080",
		JWTSecret: "dev-secret",
		TokenTTL:  8 * time.Hour,
		UploadDir: "uploads",
	}
}

// LoadConfig reads settings from the given YAML file (if it exists) and
// FIELDSYNC_-prefixed environment variables, over the defaults.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			v.SetConfigFile(configPath)
		}
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("fieldsync-server")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("FIELDSYNC")
	v.AutomaticEnv()

	v.BindEnv("addr")
	v.BindEnv("jwt_secret")
	v.BindEnv("s3_endpoint")
	v.BindEnv("s3_bucket")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

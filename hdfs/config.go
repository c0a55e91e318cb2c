package hdfs

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

/** Defaults for a NameNode's WebHDFS endpoint **/
const (
	DefaultPort   int    = 50070
	DefaultUser   string = "hadoop"
	DefaultPrefix string = "/webhdfs/v1"

	// mkdir -p default, same as `hdfs dfs -mkdir`
	DefaultDirPermission os.FileMode = 0775
)

// WebHDFS operation codes
const (
	OpGetFileStatus   = "GETFILESTATUS"
	OpGetFileChecksum = "GETFILECHECKSUM"
	OpListStatus      = "LISTSTATUS"
	OpRename          = "RENAME"
	OpMkdirs          = "MKDIRS"
	OpSetReplication  = "SETREPLICATION"
	OpDelete          = "DELETE"
)

// Config holds the connection parameters of one client. It is copied by
// NewClient, so changing it afterwards has no effect on the client.
type Config struct {
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	User   string `yaml:"user"`
	Prefix string `yaml:"prefix"`

	// 0 means no timeout beyond the connection defaults.
	Timeout time.Duration `yaml:"timeout"`
	// Requests per second, 0 disables limiting.
	RateLimit float64 `yaml:"rate_limit"`
	RateBurst int     `yaml:"rate_burst"`

	LogFile string `yaml:"log_file"`
	// lumberjack rotation; zero picks the InitLogger defaults
	LogMaxSizeMB  int `yaml:"log_max_size_mb"`
	LogMaxBackups int `yaml:"log_max_backups"`
	LogMaxAgeDays int `yaml:"log_max_age_days"`

	Logger     *zap.SugaredLogger `yaml:"-"`
	HTTPClient *http.Client       `yaml:"-"`
}

// Validate fills in defaults and checks the required fields.
func (conf *Config) Validate() error {
	if conf.Host == "" {
		return ErrMissingHost
	}
	if conf.Port == 0 {
		conf.Port = DefaultPort
	}
	if conf.Port < 0 || conf.Port > 65535 {
		return fmt.Errorf("invalid port %d", conf.Port)
	}
	if conf.User == "" {
		conf.User = DefaultUser
	}
	if conf.Prefix == "" {
		conf.Prefix = DefaultPrefix
	}
	if conf.RateLimit < 0 {
		return fmt.Errorf("invalid rate limit %v", conf.RateLimit)
	}
	if conf.RateLimit > 0 && conf.RateBurst <= 0 {
		conf.RateBurst = 1
	}
	if conf.LogMaxSizeMB < 0 || conf.LogMaxBackups < 0 || conf.LogMaxAgeDays < 0 {
		return fmt.Errorf("invalid log rotation %d MB / %d backups / %d days",
			conf.LogMaxSizeMB, conf.LogMaxBackups, conf.LogMaxAgeDays)
	}
	return nil
}

// NewLogger logs to LogFile, rotated as configured, or to stderr when
// LogFile is empty.
func (conf *Config) NewLogger() *zap.SugaredLogger {
	return newLogger(conf.LogFile, LogRotation{
		MaxSizeMB:  conf.LogMaxSizeMB,
		MaxBackups: conf.LogMaxBackups,
		MaxAgeDays: conf.LogMaxAgeDays,
	})
}

// LoadConfig reads a YAML client configuration and validates it, e.g.
//
//	host: namenode.example.com
//	port: 50070
//	user: hadoop
func LoadConfig(path string) (*Config, error) {
	conf, err := ReadConfig(path)
	if err != nil {
		return nil, err
	}
	if err := conf.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return conf, nil
}

// ReadConfig only unmarshals the file. Callers that override fields
// afterwards leave validation to NewClient.
func ReadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	conf := &Config{}
	if err := yaml.Unmarshal(data, conf); err != nil {
		return nil, fmt.Errorf("unmarshal config %s: %w", path, err)
	}
	return conf, nil
}

// Package config loads the service's runtime configuration: CLI flags,
// an INI secrets file, and environment overlay, merged through viper the
// way the teacher service does it, with the secrets file additionally
// watched for changes so a rotated credential doesn't require a restart.
package config

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the fully-resolved runtime configuration for one process.
type Config struct {
	RabbitMQHost string
	RabbitMQPort int
	RabbitMQUser string

	HTTPAddr string

	AvatarCacheSize     int
	GravatarEnabled     bool
	DefaultGravatarURI  string
	AvatarMedium        bool

	secrets atomic.Pointer[Secrets]

	v  *viper.Viper
	mu sync.Mutex
}

// Secrets is the subset of configuration that lives only in the INI
// secrets file, never in flags or environment: credentials the process
// must not echo into a command line or process listing.
type Secrets struct {
	RabbitMQPassword string `ini:"rabbitmq_password"`
	SharedSecret     string `ini:"shared_secret"`
	AvatarSalt       string `ini:"avatar_salt"`
}

// Flags registers this package's CLI flags onto fs. These are the only
// flags the service reads; there is no flag for the upstream queue name,
// which is fixed in the AMQP handler.
func Flags(fs *pflag.FlagSet) {
	fs.String("rabbitmq-host", "localhost", "RabbitMQ host")
	fs.Int("rabbitmq-port", 5672, "RabbitMQ port")
	fs.String("rabbitmq-user", "guest", "RabbitMQ user")
	fs.String("http-addr", ":9993", "address the HTTP surface listens on")
	fs.String("secrets-file", "/etc/notify-dispatch/secrets.conf", "path to the INI secrets file")
	fs.Int("avatar-cache-size", 4096, "number of resolved avatar URLs to cache")
	fs.Bool("gravatar-enabled", true, "whether gravatar avatars are offered to clients")
	fs.String("default-gravatar-uri", "", "fallback avatar URI when gravatar is disabled")
	fs.Bool("avatar-medium", false, "request medium-sized avatar variants")
}

// Load reads configuration from fs (already parsed) and the INI secrets
// file it names, and starts watching the secrets file for hot reload.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("config: failed to bind flags: %w", err)
	}
	v.SetEnvPrefix("NOTIFY_DISPATCH")
	v.AutomaticEnv()

	cfg := &Config{
		RabbitMQHost:       v.GetString("rabbitmq-host"),
		RabbitMQPort:       v.GetInt("rabbitmq-port"),
		RabbitMQUser:       v.GetString("rabbitmq-user"),
		HTTPAddr:           v.GetString("http-addr"),
		AvatarCacheSize:    v.GetInt("avatar-cache-size"),
		GravatarEnabled:    v.GetBool("gravatar-enabled"),
		DefaultGravatarURI: v.GetString("default-gravatar-uri"),
		AvatarMedium:       v.GetBool("avatar-medium"),
		v:                  v,
	}

	secretsPath := v.GetString("secrets-file")
	if secretsPath != "" {
		if err := cfg.loadSecrets(secretsPath); err != nil {
			return nil, err
		}
		cfg.watchSecrets(secretsPath)
	}

	return cfg, nil
}

func (c *Config) loadSecrets(path string) error {
	sv := viper.New()
	sv.SetConfigFile(path)
	sv.SetConfigType("ini")
	if err := sv.ReadInConfig(); err != nil {
		return fmt.Errorf("config: failed to read secrets file %s: %w", path, err)
	}

	s := &Secrets{
		RabbitMQPassword: sv.GetString("secrets.rabbitmq_password"),
		SharedSecret:     sv.GetString("secrets.shared_secret"),
		AvatarSalt:       sv.GetString("secrets.avatar_salt"),
	}
	c.secrets.Store(s)
	return nil
}

// watchSecrets hot-reloads the secrets file on change; a reload failure is
// intentionally not fatal — the process keeps running on the last good
// value rather than crashing on a transient write.
func (c *Config) watchSecrets(path string) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return
	}

	go func() {
		for event := range watcher.Events {
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				_ = c.loadSecrets(path)
			}
		}
	}()
}

// Secrets returns the most recently loaded secrets snapshot.
func (c *Config) Secrets() *Secrets {
	return c.secrets.Load()
}

// RabbitMQURI builds the AMQP connection URI from host/port/user plus the
// current secret password.
func (c *Config) RabbitMQURI() string {
	password := ""
	if s := c.Secrets(); s != nil {
		password = s.RabbitMQPassword
	}
	return fmt.Sprintf("amqp://%s:%s@%s:%d/", c.RabbitMQUser, password, c.RabbitMQHost, c.RabbitMQPort)
}

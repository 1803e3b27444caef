package env

import (
	"context"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"

	"github.com/luma/rosapi/client"
)

type Config struct {
	Host     string        `env:"ROUTEROS_HOST,default=192.168.88.1"`
	Port     int           `env:"ROUTEROS_PORT"`
	Username string        `env:"ROUTEROS_USER,default=admin"`
	Password string        `env:"ROUTEROS_PASSWORD"`
	Timeout  time.Duration `env:"ROUTEROS_TIMEOUT,default=10s"`
	TLS      bool          `env:"ROUTEROS_TLS"`
	Debug    bool          `env:"ROUTEROS_DEBUG"`
}

// LoadConfig reads the connection settings from the environment, after
// loading `.env.local` when it exists.
func LoadConfig(ctx context.Context) (*Config, error) {
	return LoadConfigFrom(ctx, ".env.local")
}

func LoadConfigFrom(ctx context.Context, dotenv string) (*Config, error) {
	config := Config{}

	if err := godotenv.Load(dotenv); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	}

	if err := envconfig.Process(ctx, &config); err != nil {
		return nil, err
	}

	return &config, nil
}

// ClientOptions turns the config into client options.
func (c *Config) ClientOptions() client.Options {
	return client.Options{
		Host:     c.Host,
		Port:     c.Port,
		Username: c.Username,
		Password: c.Password,
		Timeout:  c.Timeout,
		TLS:      c.TLS,
		Debug:    c.Debug,
	}
}

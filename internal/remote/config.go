package remote

import "time"

// Default connection settings. They target a LocalStack container.
const (
	DefaultTable    = "Lists"
	DefaultEndpoint = "http://localhost:4566"
	DefaultRegion   = "us-east-1"
	DefaultTimeout  = 10 * time.Second
)

// Config holds the connection settings for the remote mirror.
// The env tags are resolved by config.RemoteFromEnv.
type Config struct {
	// Table is the DynamoDB table name.
	Table string `env:"HMB_DDB_TABLE" envDefault:"Lists"`

	// Endpoint overrides the service endpoint. Empty means the AWS default.
	Endpoint string `env:"AWS_ENDPOINT" envDefault:"http://localhost:4566"`

	// Region is the AWS region.
	Region string `env:"AWS_DEFAULT_REGION" envDefault:"us-east-1"`

	// Timeout bounds every individual remote call.
	Timeout time.Duration `env:"HMB_REMOTE_TIMEOUT" envDefault:"10s"`
}

// DefaultConfig returns the LocalStack defaults.
func DefaultConfig() Config {
	return Config{
		Table:    DefaultTable,
		Endpoint: DefaultEndpoint,
		Region:   DefaultRegion,
		Timeout:  DefaultTimeout,
	}
}

// withDefaults fills zero fields. Endpoint is left alone so an empty
// value can select the real AWS endpoint.
func (c Config) withDefaults() Config {
	if c.Table == "" {
		c.Table = DefaultTable
	}
	if c.Region == "" {
		c.Region = DefaultRegion
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

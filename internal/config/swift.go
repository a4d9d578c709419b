package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/ncw/swift/v2"
	"github.com/pkg/errors"
)

// Environment variables holding the Swift credentials.
const (
	EnvAuthURL  = "SWIFT_AUTH_URL"
	EnvUsername = "SWIFT_USERNAME"
	EnvAPIKey   = "SWIFT_API_KEY"
	EnvTenant   = "SWIFT_TENANT"
	EnvDomain   = "SWIFT_DOMAIN"
	EnvRegion   = "SWIFT_REGION"
	EnvTimeout  = "SWIFT_TIMEOUT"
)

// DefaultTimeout is the Swift requests timeout.
const DefaultTimeout = 60 * time.Second

// Swift holds the credentials of a Swift account.
type Swift struct {
	AuthURL  string
	Username string
	APIKey   string
	Tenant   string
	Domain   string
	Region   string
	Timeout  time.Duration
}

// LoadEnv loads the given dotenv files into the environment, `.env' when none is given.
// Missing files are ignored and the variables already set are never overridden.
func LoadEnv(filenames ...string) error {
	if len(filenames) == 0 {
		filenames = []string{".env"}
	}

	for _, filename := range filenames {
		err := godotenv.Load(filename)
		if os.IsNotExist(errors.Cause(err)) {
			continue
		}
		if err != nil {
			return errors.Wrapf(err, "could not load %s", filename)
		}
	}
	return nil
}

// SwiftFromEnv returns the Swift credentials read from the environment.
func SwiftFromEnv() (Swift, error) {
	s := Swift{
		AuthURL:  os.Getenv(EnvAuthURL),
		Username: os.Getenv(EnvUsername),
		APIKey:   os.Getenv(EnvAPIKey),
		Tenant:   os.Getenv(EnvTenant),
		Domain:   os.Getenv(EnvDomain),
		Region:   os.Getenv(EnvRegion),
		Timeout:  DefaultTimeout,
	}

	if v := os.Getenv(EnvTimeout); v != "" {
		timeout, err := time.ParseDuration(v)
		if err != nil {
			return s, configErrorf("%s: %s", EnvTimeout, err)
		}
		s.Timeout = timeout
	}

	return s, s.Validate()
}

// Validate checks that the mandatory credentials are set.
func (s Swift) Validate() error {
	switch {
	case s.AuthURL == "":
		return configErrorf("%s is required", EnvAuthURL)
	case s.Username == "":
		return configErrorf("%s is required", EnvUsername)
	case s.APIKey == "":
		return configErrorf("%s is required", EnvAPIKey)
	case s.Timeout <= 0:
		return configErrorf("%s must be positive", EnvTimeout)
	}
	return nil
}

// Connection returns a Swift connection using the credentials.
// It authenticates on its first request.
func (s Swift) Connection() *swift.Connection {
	return &swift.Connection{
		AuthUrl:        s.AuthURL,
		UserName:       s.Username,
		ApiKey:         s.APIKey,
		Tenant:         s.Tenant,
		Domain:         s.Domain,
		Region:         s.Region,
		ConnectTimeout: s.Timeout,
		Timeout:        s.Timeout,
	}
}

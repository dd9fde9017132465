package siwe

import (
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Config controls how messages are constructed. The zero value uses the
// lenient parser and tolerates a missing address; DefaultConfig is strict
// on both.
type Config struct {
	// Strict selects StrictParser over LenientParser.
	Strict bool `default:"true"`
	// RequireAddress makes a missing address a malformed session at
	// verification time.
	RequireAddress bool `split_words:"true" default:"true"`

	// Rand is the entropy source for generated nonces. Nil means crypto/rand.
	Rand io.Reader `ignored:"true"`
	// Now is the clock used to default issuedAt. Nil means time.Now.
	Now func() time.Time `ignored:"true"`
	// Logger receives verification failures at debug level.
	Logger logrus.FieldLogger `ignored:"true"`
}

func DefaultConfig() Config {
	return Config{Strict: true, RequireAddress: true}
}

// LoadConfig reads SIWE_STRICT and SIWE_REQUIRE_ADDRESS from the
// environment, after loading filename (or ./.env when empty) if it exists.
func LoadConfig(filename string) (*Config, error) {
	if err := loadEnvironment(filename); err != nil {
		return nil, errors.Wrap(err, "loading environment")
	}

	config := new(Config)
	if err := envconfig.Process("siwe", config); err != nil {
		return nil, errors.Wrap(err, "processing siwe configuration")
	}
	return config, nil
}

func loadEnvironment(filename string) error {
	var err error
	if filename != "" {
		err = godotenv.Overload(filename)
	} else {
		err = godotenv.Load()
		// a missing .env file is fine
		if os.IsNotExist(err) {
			return nil
		}
	}
	return err
}

func (c Config) parser() MessageParser {
	if c.Strict {
		return StrictParser{}
	}
	return LenientParser{}
}

func (c Config) clock() func() time.Time {
	if c.Now != nil {
		return c.Now
	}
	return time.Now
}

var discardLogger = func() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}()

func (c Config) logger() logrus.FieldLogger {
	if c.Logger != nil {
		return c.Logger
	}
	return discardLogger
}

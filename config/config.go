// Package config loads the bookfetch settings from flags, BOOKFETCH_*
// environment variables and an optional YAML file, in that order of
// precedence, and validates them.
package config

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/adamwoolhether/bookfetch/credential"
	"github.com/adamwoolhether/bookfetch/engine"
	"github.com/adamwoolhether/bookfetch/validate"
)

// EnvPrefix prefixes every environment variable, e.g. BOOKFETCH_TOKEN.
const EnvPrefix = "BOOKFETCH"

// Keys name every setting in flags, the config file and, upper-cased
// with dashes turned into underscores, the environment.
const (
	KeyURL         = "url"
	KeyContentID   = "content-id"
	KeyInputFile   = "input-file"
	KeyOutput      = "output"
	KeyConcurrency = "concurrency"
	KeyConfig      = "config"
	KeyDebug       = "debug"
	KeyToken       = "token"
	KeyTokenFile   = "token-file"
	KeySaveToken   = "save-token"
	KeyRPS         = "rps"
	KeyBurst       = "burst"
	KeyStatusAddr  = "status-addr"
	KeyMetricsFile = "metrics-file"
	KeyReport      = "report"
	KeyKeepCorrupt = "keep-corrupt"
	KeyManifest    = "manifest"
	KeyTemplate    = "template"
	KeyHardTimeout = "hard-timeout"
	KeyMaxAttempts = "max-attempts"
	KeyNoColor     = "no-color"
)

const DefaultConcurrency = 5

// ErrHelp is returned by Load when help was requested.
var ErrHelp = pflag.ErrHelp

// Config holds every setting of a run.
type Config struct {
	URLs        []string      `mapstructure:"url" validate:"dive,required"`
	ContentIDs  []string      `mapstructure:"content-id" validate:"dive,required"`
	InputFile   string        `mapstructure:"input-file" validate:"omitempty,file"`
	Output      string        `mapstructure:"output" validate:"required"`
	Concurrency int           `mapstructure:"concurrency" validate:"gte=1,lte=64"`
	Debug       bool          `mapstructure:"debug"`
	Token       string        `mapstructure:"token"`
	TokenFile   string        `mapstructure:"token-file" validate:"required"`
	SaveToken   bool          `mapstructure:"save-token"`
	RPS         int           `mapstructure:"rps" validate:"gte=0"`
	Burst       int           `mapstructure:"burst" validate:"gte=0"`
	StatusAddr  string        `mapstructure:"status-addr" validate:"omitempty,hostname_port"`
	MetricsFile string        `mapstructure:"metrics-file"`
	Report      string        `mapstructure:"report"`
	KeepCorrupt bool          `mapstructure:"keep-corrupt"`
	Manifest    string        `mapstructure:"manifest" validate:"omitempty,file"`
	Template    string        `mapstructure:"template" validate:"omitempty,contains={id}"`
	HardTimeout time.Duration `mapstructure:"hard-timeout" validate:"gte=0"`
	MaxAttempts int           `mapstructure:"max-attempts" validate:"gte=1,lte=10"`
	NoColor     bool          `mapstructure:"no-color"`

	// File is the config file that was read, if any.
	File string `mapstructure:"-"`
}

// FlagSet declares every flag with its default.
func FlagSet(name string, output io.Writer) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(output)
	fs.SortFlags = false

	fs.StringArrayP(KeyURL, "u", nil, "book page or file URL (repeatable)")
	fs.StringArrayP(KeyContentID, "c", nil, "book content id (repeatable)")
	fs.StringP(KeyInputFile, "i", "", "file with one URL or content id per line")
	fs.StringP(KeyOutput, "o", ".", "output directory, or file name for a single book")
	fs.Int(KeyConcurrency, DefaultConcurrency, "number of parallel downloads")
	fs.String(KeyConfig, "", "YAML config file")
	fs.Bool(KeyDebug, false, "enable debug logging")
	fs.String(KeyToken, "", "access token")
	fs.String(KeyTokenFile, credential.DefaultFile, "file holding the access token")
	fs.Bool(KeySaveToken, false, "store the --token value in the token file")
	fs.Int(KeyRPS, 0, "requests per second per host, 0 disables throttling")
	fs.Int(KeyBurst, 0, "request burst per host, defaults to --rps")
	fs.String(KeyStatusAddr, "", "serve live status on this address, e.g. localhost:9090")
	fs.String(KeyMetricsFile, "", "write Prometheus metrics to this file on exit")
	fs.String(KeyReport, "", "write a YAML session report to this file")
	fs.Bool(KeyKeepCorrupt, false, "keep the last download that failed verification as <name>.corrupt")
	fs.String(KeyManifest, "", "YAML manifest describing the books")
	fs.String(KeyTemplate, "", "file URL template with an {id} placeholder")
	fs.Duration(KeyHardTimeout, engine.DefaultHardTimeout, "how long running downloads may continue after an interrupt")
	fs.Int(KeyMaxAttempts, engine.DefaultMaxAttempts, "fetch attempts per book")
	fs.Bool(KeyNoColor, false, "disable colored output")

	return fs
}

// Load parses args and merges them with the environment and the config
// file named by --config. lookupEnv is typically os.LookupEnv.
func Load(args []string, lookupEnv func(string) (string, bool), output io.Writer) (Config, error) {
	fs := FlagSet("bookfetch", output)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return Config{}, ErrHelp
		}
		return Config{}, fmt.Errorf("parsing flags: %w", err)
	}

	v := viper.New()
	if err := v.BindPFlags(fs); err != nil {
		return Config{}, fmt.Errorf("binding flags: %w", err)
	}

	// Explicit flags beat the environment, which beats the config file.
	// Values set here override the file, so changed flags are left alone.
	fs.VisitAll(func(f *pflag.Flag) {
		if val, ok := lookupEnv(envName(f.Name)); ok && !f.Changed {
			v.Set(f.Name, envValue(f, val))
		}
	})

	file := v.GetString(KeyConfig)
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	cfg.File = file

	if cfg.Burst == 0 {
		cfg.Burst = cfg.RPS
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks every field and the rules spanning several of them.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}

	var fe validate.FieldErrors
	if c.SaveToken && strings.TrimSpace(c.Token) == "" {
		fe = append(fe, validate.FieldError{Field: KeySaveToken, Err: "requires --token"})
	}
	if c.RPS == 0 && c.Burst > 0 {
		fe = append(fe, validate.FieldError{Field: KeyBurst, Err: "requires --rps"})
	}
	if len(fe) > 0 {
		return fe
	}

	return nil
}

// Policy returns the retry policy for the configured attempt count.
func (c Config) Policy() engine.Policy {
	p := engine.DefaultPolicy()
	p.MaxAttempts = c.MaxAttempts
	p.Jitter = true
	return p
}

func envName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
}

// envValue converts an environment value to the flag's type. Lists are
// comma separated.
func envValue(f *pflag.Flag, val string) any {
	if f.Value.Type() == "stringArray" {
		var out []string
		for part := range strings.SplitSeq(val, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	}
	return val
}

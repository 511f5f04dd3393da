// Package config loads codec and logging settings from TOML files.
//
//	[codec]
//	transport = "stream"
//	max_version = 1
//	strict_reserved = true
//	mic_size = 16
//	max_message_size = 4096
//
//	[log]
//	level = "debug"
//	format = "json"
//
// Omitted keys keep the values of [Default], except max_message_size,
// which defaults to the limit of the chosen transport.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/meshwire/message"
)

// Transport names accepted by CodecConfig.Transport.
const (
	TransportDatagram = "datagram"
	TransportStream   = "stream"
)

// Log formats accepted by LogConfig.Format.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config is the top-level configuration file.
type Config struct {
	Codec CodecConfig `toml:"codec"`
	Log   LogConfig   `toml:"log"`
}

// CodecConfig mirrors message.Options.
type CodecConfig struct {
	Transport      string `toml:"transport"`
	MaxVersion     uint8  `toml:"max_version"`
	StrictReserved bool   `toml:"strict_reserved"`
	MICSize        int    `toml:"mic_size"`
	MaxMessageSize int    `toml:"max_message_size"`
}

// LogConfig selects the logrus level and formatter.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Default returns datagram framing with info-level text logs.
func Default() Config {
	opts := message.DefaultOptions()
	return Config{
		Codec: CodecConfig{
			Transport:      TransportDatagram,
			MaxVersion:     opts.MaxVersion,
			StrictReserved: opts.StrictReserved,
			MICSize:        opts.MICSize,
			MaxMessageSize: opts.MaxMessageSize,
		},
		Log: LogConfig{
			Level:  "info",
			Format: FormatText,
		},
	}
}

// Load reads and validates the configuration file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes TOML on top of Default and validates the result. Unknown
// keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	cfg.Codec.MaxMessageSize = 0

	dec := toml.NewDecoder(strings.NewReader(string(data)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("config parse failed: %w", err)
	}
	if cfg.Codec.MaxMessageSize == 0 {
		cfg.Codec.MaxMessageSize = transportLimit(cfg.Codec.Transport)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func transportLimit(transport string) int {
	if transport == TransportStream {
		return message.StreamOptions().MaxMessageSize
	}
	return message.DefaultOptions().MaxMessageSize
}

// Validate checks every section.
func (c Config) Validate() error {
	switch c.Codec.Transport {
	case TransportDatagram, TransportStream:
	default:
		return fmt.Errorf("%w: codec.transport %q", ErrInvalidConfig, c.Codec.Transport)
	}
	if err := c.Options().Validate(); err != nil {
		return fmt.Errorf("%w: codec: %v", ErrInvalidConfig, err)
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: log.level: %v", ErrInvalidConfig, err)
	}
	switch c.Log.Format {
	case FormatText, FormatJSON:
	default:
		return fmt.Errorf("%w: log.format %q", ErrInvalidConfig, c.Log.Format)
	}
	return nil
}

// Options converts the codec section to message.Options.
func (c Config) Options() message.Options {
	return message.Options{
		Stream:         c.Codec.Transport == TransportStream,
		MaxVersion:     c.Codec.MaxVersion,
		StrictReserved: c.Codec.StrictReserved,
		MICSize:        c.Codec.MICSize,
		MaxMessageSize: c.Codec.MaxMessageSize,
	}
}

// ApplyLogging configures the standard logrus logger.
func (c Config) ApplyLogging() error {
	return c.applyTo(logrus.StandardLogger())
}

func (c Config) applyTo(l *logrus.Logger) error {
	level, err := logrus.ParseLevel(c.Log.Level)
	if err != nil {
		return fmt.Errorf("%w: log.level: %v", ErrInvalidConfig, err)
	}
	l.SetLevel(level)
	if c.Log.Format == FormatJSON {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	l.WithFields(logrus.Fields{
		"function": "ApplyLogging",
		"level":    level.String(),
		"format":   c.Log.Format,
	}).Debug("Logging configured")
	return nil
}

package config

import (
	"fmt"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/lithammer/shortuuid/v4"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Default values
const (
	DefaultFFmpegBin      = "ffmpeg"
	DefaultFFprobeBin     = "ffprobe"
	DefaultOutputExt      = ".mp4"
	DefaultConvertTimeout = 2 * time.Hour
	DefaultLogLevel       = "info"
)

// Config holds application settings. Every field can be overridden
// through the environment with the MC_ prefix, e.g. MC_FFMPEG_BIN.
type Config struct {
	FFmpegBin        string        `mapstructure:"FFMPEG_BIN"`
	FFprobeBin       string        `mapstructure:"FFPROBE_BIN"`
	FFmpegExtraArgs  string        `mapstructure:"FFMPEG_EXTRA_ARGS"`
	OutputDir        string        `mapstructure:"OUTPUT_DIR"`
	ConvertTimeout   time.Duration `mapstructure:"CONVERT_TIMEOUT"`
	ThrottleCPU      float64       `mapstructure:"THROTTLE_CPU"`
	ThrottleFreeMem  uint64        `mapstructure:"THROTTLE_FREEMEM"`
	ThrottleFreeDisk uint64        `mapstructure:"THROTTLE_FREEDISK"`
	LogLevel         string        `mapstructure:"LOG_LEVEL"`
}

// stringToDurationHookFunc parses Go duration strings from config values
func stringToDurationHookFunc() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
		if f.Kind() != reflect.String || t != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		return time.ParseDuration(data.(string))
	}
}

// stringToByteSizeHookFunc parses human-readable sizes like "512MB"
func stringToByteSizeHookFunc() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
		if f.Kind() != reflect.String || t.Kind() != reflect.Uint64 {
			return data, nil
		}
		var v datasize.ByteSize
		if err := v.UnmarshalText([]byte(data.(string))); err != nil {
			return nil, err
		}
		return uint64(v.Bytes()), nil
	}
}

// Load reads configuration from an optional config file and the
// environment. path may be empty.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("FFMPEG_BIN", DefaultFFmpegBin)
	v.SetDefault("FFPROBE_BIN", DefaultFFprobeBin)
	v.SetDefault("FFMPEG_EXTRA_ARGS", "")
	v.SetDefault("OUTPUT_DIR", "")
	v.SetDefault("CONVERT_TIMEOUT", DefaultConvertTimeout.String())
	v.SetDefault("THROTTLE_CPU", 0.0)
	v.SetDefault("THROTTLE_FREEMEM", "0B")
	v.SetDefault("THROTTLE_FREEDISK", "0B")
	v.SetDefault("LOG_LEVEL", DefaultLogLevel)

	v.SetEnvPrefix("MC")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("could not read config file %s: %w", path, err)
		}
	}

	var cfg Config
	decodeHook := mapstructure.ComposeDecodeHookFunc(
		stringToDurationHookFunc(),
		stringToByteSizeHookFunc(),
	)
	if err := v.Unmarshal(&cfg, viper.DecodeHook(decodeHook)); err != nil {
		return nil, fmt.Errorf("could not parse configuration: %w", err)
	}
	return &cfg, nil
}

// DefaultOutputPath derives an output path for an input file when the
// caller did not name one: same base name plus a short unique suffix,
// in the configured output directory (or next to the input).
func (c *Config) DefaultOutputPath(input, ext string) string {
	if ext == "" {
		ext = DefaultOutputExt
	}
	dir := c.OutputDir
	if dir == "" {
		dir = filepath.Dir(input)
	}
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return filepath.Join(dir, fmt.Sprintf("%s-%s%s", base, shortuuid.New(), ext))
}

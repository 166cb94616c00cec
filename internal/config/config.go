package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the top-level configuration for the synthesis engine, loaded
// once at process start from flags, environment variables, and an optional
// config file, in that precedence order.
type Config struct {
	AssetRoot string        `mapstructure:"asset_root"`
	Runtime   RuntimeConfig `mapstructure:"runtime"`
	Server    ServerConfig  `mapstructure:"server"`
	TTS       TTSConfig     `mapstructure:"tts"`
	LogLevel  string        `mapstructure:"log_level"`
}

// RuntimeConfig configures the ONNX Runtime binding used to load the four
// inference sessions (§6.3).
type RuntimeConfig struct {
	Threads        int    `mapstructure:"threads"`
	InterOpThreads int    `mapstructure:"inter_op_threads"`
	ORTLibraryPath string `mapstructure:"ort_library_path"`
	ORTVersion     string `mapstructure:"ort_version"`
}

// ServerConfig configures the HTTP synthesis surface (§6.1, §5).
type ServerConfig struct {
	ListenAddr            string  `mapstructure:"listen_addr"`
	RequestTimeoutSeconds int     `mapstructure:"request_timeout_seconds"`
	MaxTextBytes          int     `mapstructure:"max_text_bytes"`
	Workers               int     `mapstructure:"workers"`
	DefaultSpeed          float32 `mapstructure:"default_speed"`
}

// TTSConfig holds the synthesis defaults shared by the CLI and library entry
// points.
type TTSConfig struct {
	DefaultSpeed           float32 `mapstructure:"default_speed"`
	DefaultTotalStep       int     `mapstructure:"default_total_step"`
	MaxChunkChars          int     `mapstructure:"max_chunk_chars"`
	SilenceDurationSeconds float64 `mapstructure:"silence_duration_seconds"`
}

type LoadOptions struct {
	Cmd        flagBinder
	ConfigFile string
	Defaults   Config
}

type flagBinder interface {
	Flags() *pflag.FlagSet
}

// DefaultConfig returns the engine's baked-in defaults. Server and client
// (CLI/library) speed defaults are intentionally different (Open Question 1
// in the design notes): 1.05 on the server path, 1.0 everywhere else.
func DefaultConfig() Config {
	return Config{
		AssetRoot: "assets",
		Runtime: RuntimeConfig{
			Threads:        4,
			InterOpThreads: 1,
			ORTLibraryPath: "",
			ORTVersion:     "",
		},
		Server: ServerConfig{
			ListenAddr:            ":8080",
			RequestTimeoutSeconds: 60,
			MaxTextBytes:          65536,
			Workers:               4,
			DefaultSpeed:          1.05,
		},
		TTS: TTSConfig{
			DefaultSpeed:           1.0,
			DefaultTotalStep:       5,
			MaxChunkChars:          300,
			SilenceDurationSeconds: 0.3,
		},
		LogLevel: "info",
	}
}

func RegisterFlags(fs *pflag.FlagSet, defaults Config) {
	fs.String("asset-root", defaults.AssetRoot, "Root directory containing tts.json, the ONNX graphs, and voice_styles/")
	fs.Int("runtime-threads", defaults.Runtime.Threads, "ONNX Runtime intra-op thread count")
	fs.Int("runtime-inter-op-threads", defaults.Runtime.InterOpThreads, "ONNX Runtime inter-op thread count")
	fs.String("runtime-ort-library-path", defaults.Runtime.ORTLibraryPath, "Path to ONNX Runtime shared library")
	fs.String("ort-lib", defaults.Runtime.ORTLibraryPath, "Path to ONNX Runtime shared library (alias for --runtime-ort-library-path)")
	fs.String("runtime-ort-version", defaults.Runtime.ORTVersion, "Expected ONNX Runtime version")
	fs.String("server-listen-addr", defaults.Server.ListenAddr, "HTTP listen address")
	fs.Int("server-request-timeout-seconds", defaults.Server.RequestTimeoutSeconds, "Per-request synthesis timeout, in seconds")
	fs.Int("server-max-text-bytes", defaults.Server.MaxTextBytes, "Maximum accepted text size (and request body size), in bytes")
	fs.Int("server-workers", defaults.Server.Workers, "Maximum concurrent synthesis requests")
	fs.Float32("server-default-speed", defaults.Server.DefaultSpeed, "Default playback speed for the server path")
	fs.Float32("tts-default-speed", defaults.TTS.DefaultSpeed, "Default playback speed for CLI/library calls")
	fs.Int("tts-default-total-step", defaults.TTS.DefaultTotalStep, "Default number of denoising steps")
	fs.Int("tts-max-chunk-chars", defaults.TTS.MaxChunkChars, "Maximum characters per text chunk")
	fs.Float64("tts-silence-duration-seconds", defaults.TTS.SilenceDurationSeconds, "Inter-chunk silence duration, in seconds")
	fs.String("log-level", defaults.LogLevel, "Log level (debug, info, warn, error)")
}

func Load(opts LoadOptions) (Config, error) {
	v := viper.New()

	setDefaults(v, opts.Defaults)
	if opts.Cmd != nil {
		if err := v.BindPFlags(opts.Cmd.Flags()); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}
	registerAliases(v)

	v.SetEnvPrefix("SUPERTONIC")
	replacer := strings.NewReplacer("-", "_", ".", "_", "__", "_")
	v.SetEnvKeyReplacer(replacer)
	if err := v.BindEnv("asset_root", "SUPERTONIC_ASSET_ROOT"); err != nil {
		return Config{}, fmt.Errorf("bind asset root env var: %w", err)
	}
	if err := v.BindEnv("runtime.ort_library_path", "SUPERTONIC_ORT_LIB", "ORT_LIBRARY_PATH"); err != nil {
		return Config{}, fmt.Errorf("bind ort env vars: %w", err)
	}
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("supertonic")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, c Config) {
	v.SetDefault("asset_root", c.AssetRoot)
	v.SetDefault("runtime.threads", c.Runtime.Threads)
	v.SetDefault("runtime.inter_op_threads", c.Runtime.InterOpThreads)
	v.SetDefault("runtime.ort_library_path", c.Runtime.ORTLibraryPath)
	v.SetDefault("runtime.ort_version", c.Runtime.ORTVersion)
	v.SetDefault("server.listen_addr", c.Server.ListenAddr)
	v.SetDefault("server.request_timeout_seconds", c.Server.RequestTimeoutSeconds)
	v.SetDefault("server.max_text_bytes", c.Server.MaxTextBytes)
	v.SetDefault("server.workers", c.Server.Workers)
	v.SetDefault("server.default_speed", c.Server.DefaultSpeed)
	v.SetDefault("tts.default_speed", c.TTS.DefaultSpeed)
	v.SetDefault("tts.default_total_step", c.TTS.DefaultTotalStep)
	v.SetDefault("tts.max_chunk_chars", c.TTS.MaxChunkChars)
	v.SetDefault("tts.silence_duration_seconds", c.TTS.SilenceDurationSeconds)
	v.SetDefault("log_level", c.LogLevel)
}

func registerAliases(v *viper.Viper) {
	v.RegisterAlias("asset_root", "asset-root")
	v.RegisterAlias("runtime.threads", "runtime-threads")
	v.RegisterAlias("runtime.inter_op_threads", "runtime-inter-op-threads")
	v.RegisterAlias("runtime.ort_library_path", "runtime-ort-library-path")
	v.RegisterAlias("runtime.ort_library_path", "ort-lib")
	v.RegisterAlias("runtime.ort_version", "runtime-ort-version")
	v.RegisterAlias("server.listen_addr", "server-listen-addr")
	v.RegisterAlias("server.request_timeout_seconds", "server-request-timeout-seconds")
	v.RegisterAlias("server.max_text_bytes", "server-max-text-bytes")
	v.RegisterAlias("server.workers", "server-workers")
	v.RegisterAlias("server.default_speed", "server-default-speed")
	v.RegisterAlias("tts.default_speed", "tts-default-speed")
	v.RegisterAlias("tts.default_total_step", "tts-default-total-step")
	v.RegisterAlias("tts.max_chunk_chars", "tts-max-chunk-chars")
	v.RegisterAlias("tts.silence_duration_seconds", "tts-silence-duration-seconds")
	v.RegisterAlias("log_level", "log-level")
}

package config

const (
	defaultStateDir       = "~/.local/share/compressum"
	defaultLogDir         = "~/.local/share/compressum/logs"
	defaultFallbackFFmpeg = "/usr/local/bin/ffmpeg"
	defaultFormat         = "mp4"
	defaultFastPreset     = "ultrafast"
	defaultSlowPreset     = "fast"
	defaultWatchDebounce  = 2000
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
	defaultLogRetention   = 14
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		FFmpeg: FFmpeg{
			FallbackPath: defaultFallbackFFmpeg,
		},
		Compression: Compression{
			Format:     defaultFormat,
			FastPreset: defaultFastPreset,
			SlowPreset: defaultSlowPreset,
		},
		Watch: Watch{
			DebounceMillis: defaultWatchDebounce,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetention,
		},
	}
}

package config

import (
	"github.com/gridscan/gridscan/logging"
)

// InitLoggingSettings sets the logger's level from the config. The command line debug flag wins
// over the configured level.
func InitLoggingSettings(logger logging.Logger, cmdLineDebugFlag bool, cfg *Config) {
	level := logging.INFO
	switch {
	case cmdLineDebugFlag:
		level = logging.DEBUG
	case cfg != nil:
		if parsed, err := logging.LevelFromString(cfg.Debug.LogLevel); err == nil {
			level = parsed
		} else {
			logger.Warnw("invalid log level, using info", "log_level", cfg.Debug.LogLevel)
		}
	}
	logger.SetLevel(level)
	logger.Infow("log level initialized", "level", level.String())
}

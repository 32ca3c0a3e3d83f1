package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

var Log *logrus.Logger

func BoostrapLogger() {
	Log = &logrus.Logger{
		Out:   os.Stdout,
		Hooks: make(logrus.LevelHooks),
		Formatter: &logrus.TextFormatter{
			DisableColors:    false,
			DisableQuote:     false,
			DisableTimestamp: false,
			FullTimestamp:    true,
			TimestampFormat:  "2006-01-02 15:04:05",
		},
		ReportCaller: true,
		Level:        logrus.DebugLevel,
		ExitFunc:     os.Exit,
	}
}

// SetLevel switches the level from config, keeping debug when the value is not understood.
func SetLevel(level string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		Log.Warnf("unknown log level '%s', keeping %s", level, Log.GetLevel())
		return
	}
	Log.SetLevel(lvl)
}

func init() {
	// Packages log before main bootstraps (tests, CLI init); never leave Log nil.
	Log = logrus.New()
}

package utils

import (
	"strings"

	"github.com/sirupsen/logrus"
)

var Log = logrus.New()

func SetLogLevel(level string) {
	// logrus' trace and panic levels are not used
	switch strings.ToLower(level) {
	case "debug":
		Log.SetLevel(logrus.DebugLevel)
	case "info":
		Log.SetLevel(logrus.InfoLevel)
	case "warning", "warn":
		Log.SetLevel(logrus.WarnLevel)
	case "error":
		Log.SetLevel(logrus.ErrorLevel)
	case "fatal":
		Log.SetLevel(logrus.FatalLevel)
	default:
		Log.Fatal("Bad error level string")
	}
}

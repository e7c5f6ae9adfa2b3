package logging

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func captureFuncs(lines *[]string) LogFuncs {
	record := func(level string) LogFunc {
		return func(format string, args ...interface{}) {
			*lines = append(*lines, level+": "+fmt.Sprintf(format, args...))
		}
	}
	return LogFuncs{
		Debugf: record("debug"),
		Infof:  record("info"),
		Warnf:  record("warn"),
		Errorf: record("error"),
	}
}

func TestLogger_PrefixComposition(t *testing.T) {
	var lines []string
	logger := NewLogger("[monitor] ", captureFuncs(&lines))

	logger.Infof("Pass complete, services: %d", 5)

	assert.Equal(t, []string{"info: [monitor] Pass complete, services: 5"}, lines)
}

func TestLogger_AllLevels(t *testing.T) {
	var lines []string
	logger := NewLogger("", captureFuncs(&lines))

	logger.Debugf("d")
	logger.Infof("i")
	logger.Warnf("w")
	logger.Errorf("e")

	assert.Equal(t, []string{"debug: d", "info: i", "warn: w", "error: e"}, lines)
}

func TestLogger_NilFuncsAreSafe(t *testing.T) {
	logger := NewLogger("[monitor] ", LogFuncs{})

	assert.NotPanics(t, func() {
		logger.Debugf("d")
		logger.Infof("i")
		logger.Warnf("w")
		logger.Errorf("e")
	})
}

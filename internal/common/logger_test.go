package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func TestInitLogger_InstallsGlobalLogger(t *testing.T) {
	for _, level := range []string{"", "debug", "warn"} {
		logger := InitLogger(level)
		require.NotNil(t, logger, level)
		assert.Same(t, logger, GetLogger(), level)
	}
}

func TestPrintBanner(t *testing.T) {
	assert.NotPanics(t, func() {
		PrintBanner("/proj/foreigntest.toml", arbor.NewLogger())
	})
}

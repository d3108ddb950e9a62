package common

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/banner"
)

// PrintBanner shows the tool banner and records what is being generated
func PrintBanner(manifestPath string, logger arbor.ILogger) {
	b := banner.New().
		SetStyle(banner.StyleDouble).
		SetBorderColor(banner.ColorCyan).
		SetBold(true)
	b.PrintTopLine()
	b.PrintCenteredText("FOREIGNTEST")
	b.PrintCenteredText("C declarations, interception packages and native library")
	b.PrintSeparatorLine()
	b.PrintKeyValue("Version", GetVersion(), 10)
	b.PrintKeyValue("Manifest", manifestPath, 10)
	b.PrintBottomLine()

	logger.Info().
		Str("version", GetFullVersion()).
		Str("manifest", manifestPath).
		Msg("Starting generation")
}

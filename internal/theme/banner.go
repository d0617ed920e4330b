package theme

import (
	"fmt"
)

// Banner returns the CLI banner.
func Banner() string {
	const green = "\033[32m"
	const cyan = "\033[36m"
	const reset = "\033[0m"

	return "" +
		green + "  ╭─────────────────────────────╮\n" + reset +
		green + "  │  " + reset + cyan + "nexusfeed" + reset + "  ·  community feed  " + green + "│\n" + reset +
		green + "  ╰─────────────────────────────╯\n" + reset +
		"   ranked + chronological aggregation for timebanks\n"
}

// PrintBanner prints the banner to stdout.
func PrintBanner() {
	fmt.Print(Banner())
}

// Command docassist serves the document and image chat assistants and
// offers one-shot questions and article summaries from the terminal.
package main

import (
	"os"

	"github.com/Desarso/docassist/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logger.Error("command failed", "err", err)
		os.Exit(1)
	}
}

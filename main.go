// ABOUTME: Entry point for the crmdesk client
// ABOUTME: Hands off to the cobra command tree in the cli package
package main

import (
	"os"

	"github.com/harperreed/crmdesk/cli"
)

const version = "0.2.0"

func main() {
	if err := cli.Execute(version); err != nil {
		os.Exit(1)
	}
}

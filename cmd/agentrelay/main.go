// Command agentrelay runs agent graphs declared in a YAML file.
//
//	agentrelay agents --config agents.yaml
//	agentrelay run --config agents.yaml "I was charged twice"
//	agentrelay chat --config agents.yaml --session alice --store sqlite
//
// Every flag can also be set through an AGENTRELAY_ prefixed environment
// variable, e.g. AGENTRELAY_CONFIG or AGENTRELAY_REDIS_ADDR.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

/*
zeebe is a command line client and job worker for Zeebe gateways.

Usage:

	zeebe [flags]
	zeebe [command]

Available Commands:

	cancel      Cancel a process instance
	completion  Generate the autocompletion script for the specified shell
	deploy      Deploy BPMN, DMN and form resources
	echo-worker Complete jobs of the given types with their own variables
	evaluate    Evaluate a decision
	health      Check the health of the gateway
	help        Help about any command
	publish     Publish a message
	run         Create a process instance
	signal      Broadcast a signal
	topology    Show brokers and partitions of the cluster
	version     Show version

Every flag can also be set as environment variable, e.g. --client-id as ZEEBE_CLIENT_ID.

Use "zeebe [command] --help" for more information about a command.
*/
package main

import (
	"os"

	"github.com/cschleiden/go-zeebe/cli"
)

var (
	version = "unknown-version"
)

func main() {
	cli := cli.New(version)
	os.Exit(cli.Execute())
}

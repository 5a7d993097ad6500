// Package main provides the blobnet CLI.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

const version = "v0.1.0-dev"

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		logrus.Fatalf("blobnet: %v", err)
	}
}

func printUsage() {
	fmt.Println("blobnet - declarative layer graphs for Go")
	fmt.Printf("Version: %s\n\n", version)
	fmt.Println("Commands:")
	fmt.Println("  version    Show version")
	fmt.Println("  summary    Build a network and print its layers, buffers and parameters")
	fmt.Println("  run        Build a network, load weights, run a forward pass")
	fmt.Println("  export     Convert weights between .caffemodel and .born")
	fmt.Println("")
	fmt.Println("Run 'blobnet <command> -help' for command flags.")
}

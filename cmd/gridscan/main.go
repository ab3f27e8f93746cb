// Package main is the gridscan command itself.
package main

import (
	"log"
	"os"

	"github.com/gridscan/gridscan/cli"
)

func main() {
	if err := cli.NewApp(os.Stdout).Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

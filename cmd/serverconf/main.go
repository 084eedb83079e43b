package main

import (
	"github.com/nimburion/serverconf/pkg/cli"
)

func main() {
	cmd := cli.NewRootCommand(cli.Options{
		Name:        "serverconf",
		Description: "Typed HTTP server configuration with pluggable engines",
		EnvPrefix:   "APP",
	})
	cli.Execute(cmd)
}

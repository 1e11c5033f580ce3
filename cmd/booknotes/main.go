package main

import (
	"os"

	"booknotes/internal/cli"
	"booknotes/internal/config"
)

func main() {
	config.LoadEnvFiles()
	os.Exit(cli.Execute())
}

package main

import (
	"os"

	"github.com/mind-engage/mindengage-psych/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}

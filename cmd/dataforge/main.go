package main

import (
	"os"

	dfapp "github.com/dataforge/dataforge/app"
)

func main() {
	dfapp.App.Reader = os.Stdin
	dfapp.App.Writer = os.Stdout
	dfapp.App.ErrWriter = os.Stderr
	err := dfapp.App.Run(os.Args)
	if err != nil {
		os.Exit(1)
	}
}

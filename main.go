package main

import (
	"github.com/sidkik/shipyard/cmd"
	"github.com/sidkik/shipyard/cmd/util"
)

func main() {
	defer util.HandlePanic()
	cmd.Execute()
}

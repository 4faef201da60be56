package main

import (
	"github.com/nolasundae/hofmirror/cmd"
)

func main() {
	cmd.Execute()
}

package main

import (
	"github.com/wkalt/ulog/cli/cmd"
)

func main() {
	cmd.Execute()
}

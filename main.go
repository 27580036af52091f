package main

import (
	"github.com/Ethernal-Tech/vista-bridge/cli"
)

func main() {
	cli.NewRootCommand().Execute()
}

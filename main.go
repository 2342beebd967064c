package main

import "github.com/core-explorer/elfutils/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/armory/halyard/cmd/halbackup/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/tradetalk/tradetalk/cmd/tradetalk-cli/cmd"

func main() {
	cmd.Execute()
}

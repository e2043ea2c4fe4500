package main

import "github.com/agentic-research/viewdef/cmd"

func main() {
	cmd.Execute()
}

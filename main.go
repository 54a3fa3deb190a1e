package main

import "github.com/clarvo-ai/modelgen/cmd"

func main() {
	cmd.Execute()
}

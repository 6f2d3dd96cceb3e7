package main

import "github.com/forgeworks/stencilforge/cmd"

func main() {
	cmd.Execute()
}

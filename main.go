package main

import "github.com/kamal-hamza/bricklayer/cmd"

func main() {
	cmd.Execute()
}

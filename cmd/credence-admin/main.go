package main

import "github.com/turtacn/credence/cmd/cli"

func main() {
	cli.Execute()
}

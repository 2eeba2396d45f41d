package main

import "flowtimer/cmd/focusctl/cli"

func main() {
	cli.Execute()
}

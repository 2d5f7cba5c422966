package main

import "cdo-tour-client/cmd"

func main() {
	cmd.Run()
}

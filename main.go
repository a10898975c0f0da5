package main

import "inputswitch/cmd"

func main() {
	cmd.Execute()
}

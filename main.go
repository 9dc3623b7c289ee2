package main

import "wiser/scope/cmd"

func main() {
	cmd.Execute()
}

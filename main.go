package main

import "dexarb/cmd"

func main() {
	cmd.Execute()
}

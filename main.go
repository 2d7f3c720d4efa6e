package main

import "squeeze-audio/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/KaramelBytes/intellidash-cli/cmd"

func main() {
	cmd.Execute()
}

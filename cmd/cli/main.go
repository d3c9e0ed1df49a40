package main

import "chatdesk/cmd/cli/command"

func main() {
	command.Execute()
}

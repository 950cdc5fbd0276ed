package main

import "github.com/cuongvd6868/workspace-chat/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/Wiredcraft/ansible-addons/cmd"

var version = "development"

func main() {
	cmd.Execute(version)
}

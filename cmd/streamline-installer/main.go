package main

import "github.com/streamlinelabs/streamline-installer/cmd/streamline-installer/cmd"

func main() {
	cmd.Execute()
}

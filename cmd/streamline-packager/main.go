package main

import "github.com/streamlinelabs/streamline-installer/cmd/streamline-packager/cmd"

func main() {
	cmd.Execute()
}

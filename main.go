package main

import "github/chapool/relayer/cmd"

func main() {
	cmd.Execute()
}

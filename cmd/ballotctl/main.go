package main

import "ballotledger/cmd/ballotctl/cmd"

func main() {
	cmd.Execute()
}

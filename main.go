package main

import "github.com/predictpesa/settlement/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/mselser95/range-arb/cmd"

func main() {
	cmd.Execute()
}

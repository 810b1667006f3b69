package main

import "github.com/scttfrdmn/asgresume/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/projectlily/lily/cmd"

func main() {
	cmd.Execute()
}

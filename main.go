package main

import "github.com/wineyard-swc/raices-assistant/cmd"

func main() {
	cmd.Execute()
}

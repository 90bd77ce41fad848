package main

import "github.com/mautops/pulse-analytics/cmd"

func main() {
	cmd.Execute()
}

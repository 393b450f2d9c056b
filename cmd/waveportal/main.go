// Command waveportal is a terminal front-end for the WavePortal contract.
package main

import "github.com/diogo/waveportal/internal/commands"

func main() {
	commands.Execute()
}

// Command f1data acquires Formula 1 race classifications and pit-stop
// summaries and reconciles them into one table.
package main

import "github.com/PepeHerrera14/final-adquisicion/internal/cli"

func main() {
	cli.Execute()
}

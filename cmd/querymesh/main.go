// Command querymesh runs conversational analytics sessions from the terminal.
package main

import "github.com/hupe1980/querymesh/internal/cli"

func main() {
	cli.Execute()
}

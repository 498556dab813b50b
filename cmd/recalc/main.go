// Command recalc evaluates workbooks from the command line and serves them
// over HTTP and MCP.
package main

func main() {
	Execute()
}

// contentmax is the command line interface to the pipeline: it can execute
// runs in-process, export CSV reports, and serve the HTTP API.
package main

import "github.com/Adstedt/contentmax-sub005/internal/interfaces/cli"

func main() {
	cli.Execute()
}

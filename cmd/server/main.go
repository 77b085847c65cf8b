// Package main runs the conversion API on its own, without the CLI wrapper.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sci0tools/sci2fb/pkg/api"
)

func main() {
	var port int
	flag.IntVar(&port, "port", 8080, "TCP port the API listens on")
	flag.Parse()

	fmt.Printf("sci2fb API listening on :%d\n", port)
	fmt.Printf("Interactive docs: http://localhost:%d/swagger/index.html\n", port)

	if err := api.StartServer(port); err != nil {
		fmt.Fprintf(os.Stderr, "sci2fb server: %v\n", err)
		os.Exit(1)
	}
}

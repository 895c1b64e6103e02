// Command catalogo builds, queries and serves catalogs described by a YAML
// catalog file.
//
//	catalogo index -c catalog.yaml objects.jsonl
//	catalogo search -c catalog.yaml '{"portal_type": "Document", "sort_on": "created"}'
//	catalogo plan dump -c catalog.yaml
//	catalogo serve -c catalog.yaml --addr :8080
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

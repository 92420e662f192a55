// Command linkctl imports a site into the document store and prints link
// suggestions for its pages.
//
// Usage:
//
//	go run ./cmd/linkctl import ./public --base-url https://example.com
//	go run ./cmd/linkctl outbound 12 [--config configs/development.yaml]
package main

import "github.com/Adithya-Monish-Kumar-K/linksuggest/internal/cli"

func main() {
	cli.Execute()
}

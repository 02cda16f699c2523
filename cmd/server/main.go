// Package main is the osteo-server web front-end.
//
// Usage:
//
//	osteo-server [--config osteo.yaml] [--port 5000] [--verbose]
//	osteo-server version
package main

func main() {
	Execute()
}

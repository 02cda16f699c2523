// Package main is the osteo-dashboard Telegram front-end.
//
// Usage:
//
//	TELEGRAM_TOKEN=... osteo-dashboard [--config osteo.yaml] [--port 5001] [--verbose]
package main

func main() {
	Execute()
}

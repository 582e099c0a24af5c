// Package main provides the medscan command line.
//
// Usage:
//
//	medscan serve
//	medscan scan --type chest image.png
//	medscan risk "text to classify"
//
// See --help for all available options.
package main

func main() {
	Execute()
}

// Command gpuprobe lists the adapters of a gpuapi backend and runs smoke
// tests against it.
//
// Usage:
//
//	gpuprobe adapters [--backend memory|native|rust] [--json]
//	gpuprobe smoke [--size 4096] [--image photo.png] [--trace calls.jsonl]
//
// Every flag can also be set through the environment with the GPUAPI_
// prefix, for example GPUAPI_BACKEND=native or GPUAPI_LOG_LEVEL=debug.
package main

import "os"

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"fmt"
	"runtime"
)

var Version = "dev" //set via -ldflags by the Makefile

const desc = "an on-demand reverse proxy that spawns and reaps its own backend"

func printVersion() {
	fmt.Printf("===============================\nknocker %v (%v), %v %v %v\n", Version, desc, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

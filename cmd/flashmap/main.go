package main

import "go.flashmap.dev/core/cmd/flashmap/flashmapcmd"

func main() { flashmapcmd.Execute() }

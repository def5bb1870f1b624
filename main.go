package main

import (
	"github.com/blumenshine/rankwatch/cmd"
)

func main() {
	cmd.Execute()
}

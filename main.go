package main

import (
	"github.com/luma/rosapi/cmd"
)

func main() {
	cmd.Execute()
}

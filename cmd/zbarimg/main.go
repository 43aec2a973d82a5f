package main

import (
	"os"

	"github.com/MeKo-Tech/zbargo/cmd/zbarimg/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}

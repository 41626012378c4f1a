package main

import "github.com/tatianab/clinical-sim/internal/cli"

func main() {
	cli.Execute()
}

package main

import "github.com/oshokin/receipt-scan/cmd/receipt-scan/cmd"

func main() {
	cmd.Execute()
}

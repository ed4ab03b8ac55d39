package main

import "gopherai-chat/internal/cli"

func main() {
	cli.Execute()
}

package main

import "github.com/shouni/gemini-post-kit/cmd"

func main() {
	cmd.Execute()
}

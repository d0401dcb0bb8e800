// Command forumdev is the development tool of the forum client.
package main

import "github.com/atdiar/rtforum/cmd/forumdev/cmd"

func main() {
	cmd.Execute()
}

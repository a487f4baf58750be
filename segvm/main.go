// Command segvm translates virtual addresses of a segmented, demand-paged
// memory.
package main

import "github.com/sarchlab/segvm/segvm/cmd"

func main() {
	cmd.Execute()
}

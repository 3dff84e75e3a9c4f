package main

import (
	compositioncmd "github.com/wundergraph/cosmo/composition/cmd"
)

func main() {
	compositioncmd.Main()
}

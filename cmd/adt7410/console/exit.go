package console

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

const (
	ExitError    = 1
	ExitNotFound = 2
	ExitAborted  = 3
)

func Exit(code int, msg string, args ...interface{}) cli.ExitCoder {
	return cli.Exit(fmt.Sprintf(msg, args...), code)
}

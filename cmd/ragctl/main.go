package main

import (
	"fmt"
	"os"

	"github.com/yungbote/rag-orchestrator/internal/platform/apierr"
)

func main() {
	if err := newRootCmd(nil).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", describeError(err))
		os.Exit(1)
	}
}

// describeError prefixes typed errors with their code so scripts can match on it.
func describeError(err error) string {
	if err == nil {
		return ""
	}
	if e, ok := apierr.As(err); ok && e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Error())
	}
	return err.Error()
}

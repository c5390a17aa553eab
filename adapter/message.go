package adapter

import (
	stderrors "errors"

	"github.com/lucacasonato/esbuild-deno-loader/errors"
)

// Message renders err as the plain string reported to the host. Engine
// failures and unsupported outcomes report their detail verbatim; every
// other failure reports its full description.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var e *errors.Error
	if stderrors.As(err, &e) && e.Detail != "" {
		switch e.Kind {
		case errors.KindEngine, errors.KindUnsupported:
			return e.Detail
		}
	}
	return err.Error()
}

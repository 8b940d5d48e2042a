package engine

import (
	"errors"

	"github.com/yvivekan79/vrrp/internal/config"
	"github.com/yvivekan79/vrrp/internal/keepalived"
	"github.com/yvivekan79/vrrp/internal/resolve"
	"github.com/yvivekan79/vrrp/internal/verify"
)

// Exit codes, one per failure class, so automation can branch on what
// went wrong. Kernel-state failures fall under the generic code.
const (
	CodeOK           = 0
	CodeGeneric      = 1
	CodeConfig       = 2
	CodeNoLocalNode  = 3
	CodeDependency   = 4
	CodeService      = 5
	CodeConnectivity = 6
)

// ExitCode maps a pipeline error to its process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return CodeOK
	case errors.Is(err, config.ErrMissing),
		errors.Is(err, config.ErrMalformed),
		errors.Is(err, config.ErrIncomplete):
		return CodeConfig
	case errors.Is(err, resolve.ErrNoLocalNode):
		return CodeNoLocalNode
	case errors.Is(err, keepalived.ErrDaemonMissing):
		return CodeDependency
	case errors.Is(err, keepalived.ErrRestartFailed):
		return CodeService
	case errors.Is(err, verify.ErrUnreachable):
		return CodeConnectivity
	default:
		return CodeGeneric
	}
}

package anvil

import (
	"strconv"

	"github.com/devnet-tools/devnetctl/internal/domain"
)

// buildNodeArgs assembles the anvil command line for an instance.
func buildNodeArgs(inst *domain.NodeInstance) []string {
	args := []string{"--port", strconv.Itoa(inst.Port), "--host", "127.0.0.1"}
	if inst.ChainID != 0 {
		args = append(args, "--chain-id", strconv.FormatUint(inst.ChainID, 10))
	}
	if inst.ForkURL != "" {
		args = append(args, "--fork-url", inst.ForkURL)
		if inst.ForkBlock != 0 {
			args = append(args, "--fork-block-number", strconv.FormatUint(inst.ForkBlock, 10))
		}
	}
	return args
}

package anvil

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/devnet-tools/devnetctl/internal/domain"
)

func TestBuildNodeArgs_Basic(t *testing.T) {
	args := buildNodeArgs(&domain.NodeInstance{Port: 8545})
	assert.Equal(t, []string{"--port", "8545", "--host", "127.0.0.1"}, args)
}

func TestBuildNodeArgs_WithChainID(t *testing.T) {
	args := buildNodeArgs(&domain.NodeInstance{Port: 9000, ChainID: 31337})
	assert.Equal(t, []string{"--port", "9000", "--host", "127.0.0.1", "--chain-id", "31337"}, args)
}

func TestBuildNodeArgs_WithFork(t *testing.T) {
	args := buildNodeArgs(&domain.NodeInstance{
		Port:      9000,
		ChainID:   11155111,
		ForkURL:   "https://rpc.sepolia.org",
		ForkBlock: 123456,
	})
	assert.Equal(t, []string{
		"--port", "9000",
		"--host", "127.0.0.1",
		"--chain-id", "11155111",
		"--fork-url", "https://rpc.sepolia.org",
		"--fork-block-number", "123456",
	}, args)
}

func TestBuildNodeArgs_ForkBlockRequiresForkURL(t *testing.T) {
	args := buildNodeArgs(&domain.NodeInstance{Port: 8545, ForkBlock: 42})
	assert.NotContains(t, args, "--fork-block-number")
}

package domain

import "github.com/ethereum/go-ethereum/common"

// ImpersonationSession records one address currently being impersonated on
// one node instance. Sessions are scoped per instance: the same address may
// be impersonated on two different instances independently. They are never
// persisted, since impersonation is only meaningful while the specific node
// process is alive.
type ImpersonationSession struct {
	NodeID  string         `json:"nodeId"`
	Address common.Address `json:"address"`
	Active  bool           `json:"active"`
	// Warning is non-empty when the impersonated address had a zero balance
	// at session start and will be unable to pay gas.
	Warning string `json:"warning,omitempty"`
}

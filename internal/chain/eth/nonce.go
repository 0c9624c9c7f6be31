package eth

import (
	"strings"
	"sync"
)

// NonceManager tracks the next nonce per address so that transactions sent
// in quick succession do not reuse a nonce the node has not seen yet.
type NonceManager struct {
	mu     sync.Mutex
	nonces map[string]uint64 // lower-case address -> next nonce
}

// NewNonceManager creates an empty manager.
func NewNonceManager() *NonceManager {
	return &NonceManager{nonces: make(map[string]uint64)}
}

// Next returns the higher of the node's pending nonce and the locally
// tracked one, and advances the local value.
func (nm *NonceManager) Next(address string, nodeNonce uint64) uint64 {
	nm.mu.Lock()
	defer nm.mu.Unlock()

	address = strings.ToLower(address)
	nonce := nodeNonce
	if local, ok := nm.nonces[address]; ok && local > nodeNonce {
		nonce = local
	}
	nm.nonces[address] = nonce + 1
	return nonce
}

// Reset forgets the local nonce of address, e.g. after a rejected send.
func (nm *NonceManager) Reset(address string) {
	nm.mu.Lock()
	defer nm.mu.Unlock()
	delete(nm.nonces, strings.ToLower(address))
}

package txsigner

// BridgeSigner documents the wire contract of the legacy HTTP sidecar
// that used to offload signing to an external process: POST the same
// ExecuteRequest fields as JSON to a local bridge, receive back a
// signed tx body. It is kept only so the signer selection at startup
// (--signer=native|bridge) has a second, interface-compatible case to
// choose; dialing an actual sidecar process is out of scope.
type BridgeSigner struct {
	address string
}

// NewBridgeSigner constructs a signer that always reports
// ErrBridgeUnavailable when asked to sign. address is cosmetic: callers
// may still want Address() to return something sensible for logging.
func NewBridgeSigner(address string) *BridgeSigner {
	return &BridgeSigner{address: address}
}

func (b *BridgeSigner) Address() string {
	return b.address
}

func (b *BridgeSigner) Sign(req ExecuteRequest) (SignedTx, error) {
	return SignedTx{}, ErrBridgeUnavailable
}

package p2p

import (
	"strings"

	"github.com/jedisct1/go-minisign"

	"github.com/nhzfoundation/nhzd/common"
)

// VerifyBundledPeerList checks a minisign signature over a bundled
// peer-list payload before any address in it is trusted. publicKeyBase64
// is the node's compiled-in trust anchor; data and signature are the
// distributed bundle and its accompanying .minisig contents. This guards
// the cold-start bootstrap peer list against a tampered download mirror.
func VerifyBundledPeerList(publicKeyBase64 string, data []byte, signature string) ([]string, error) {
	pk, err := minisign.NewPublicKey(publicKeyBase64)
	if err != nil {
		return nil, common.WrapValidationError(err, "bad bundled peer list public key")
	}
	sig, err := minisign.DecodeSignature(signature)
	if err != nil {
		return nil, common.WrapValidationError(err, "bad bundled peer list signature")
	}
	ok, err := pk.Verify(data, sig)
	if err != nil {
		return nil, common.WrapValidationError(err, "bundled peer list verification error")
	}
	if !ok {
		return nil, common.NewValidationError("bundled peer list signature does not verify")
	}
	return splitNonEmptyLines(data), nil
}

func splitNonEmptyLines(data []byte) []string {
	var out []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

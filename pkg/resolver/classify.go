package resolver

import (
	"regexp"
	"strings"

	"github.com/mr-tron/base58"

	"github.com/mintscout/pkg/config"
)

// Kind tells what shape a raw mention string has.
type Kind int

const (
	KindUnknown Kind = iota
	KindEVM
	KindBase58
)

func (k Kind) String() string {
	switch k {
	case KindEVM:
		return "evm"
	case KindBase58:
		return "base58"
	default:
		return "unknown"
	}
}

var (
	evmAddrRe    = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)
	base58AddrRe = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]{32,64}$`)
)

// Classified is a raw query after shape detection and canonicalization.
type Classified struct {
	Kind      Kind
	Canonical string
}

// Classify recognizes chain-address shapes and canonicalizes casing.
// EVM addresses fold to lowercase. Base-58 addresses keep their exact
// casing, case is significant on those chains. Anything else comes back
// Unknown with the trimmed input as canonical form. Never fails.
func Classify(raw string) Classified {
	s := strings.TrimSpace(raw)
	switch {
	case evmAddrRe.MatchString(s):
		return Classified{Kind: KindEVM, Canonical: strings.ToLower(s)}
	case base58AddrRe.MatchString(s) && decodesBase58(s):
		return Classified{Kind: KindBase58, Canonical: s}
	default:
		return Classified{Kind: KindUnknown, Canonical: s}
	}
}

func decodesBase58(s string) bool {
	_, err := base58.Decode(s)
	return err == nil
}

// IsAddress reports whether the input classified as a chain address.
func (c Classified) IsAddress() bool {
	return c.Kind == KindEVM || c.Kind == KindBase58
}

// ValidForChain reports whether an address kind belongs on a chain.
func ValidForChain(k Kind, chain config.Chain) bool {
	switch chain {
	case config.ChainSolana:
		return k == KindBase58
	case config.ChainEthereum, config.ChainBase, config.ChainBSC:
		return k == KindEVM
	default:
		return false
	}
}

// CanonicalAddress canonicalizes an address string for one chain, returning
// "" when the string is not a valid address there.
func CanonicalAddress(raw string, chain config.Chain) string {
	c := Classify(raw)
	if !ValidForChain(c.Kind, chain) {
		return ""
	}
	return c.Canonical
}

package resolver

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mintscout/pkg/config"
)

const (
	bonkMint = "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"
	usdtEVM  = "0xdAC17F958D2ee523a2206206994597C13D831ec7"
)

func TestClassify_EVMFoldsCase(t *testing.T) {
	a := Classify(usdtEVM)
	b := Classify(strings.ToLower(usdtEVM))

	assert.Equal(t, KindEVM, a.Kind)
	assert.Equal(t, KindEVM, b.Kind)
	assert.Equal(t, a.Canonical, b.Canonical)
	assert.Equal(t, strings.ToLower(usdtEVM), a.Canonical)
}

func TestClassify_Base58PreservesCase(t *testing.T) {
	a := Classify(bonkMint)
	b := Classify(strings.ToLower(bonkMint))

	assert.Equal(t, KindBase58, a.Kind)
	assert.Equal(t, KindBase58, b.Kind)
	assert.Equal(t, bonkMint, a.Canonical)
	assert.NotEqual(t, a.Canonical, b.Canonical)
}

func TestClassify_RejectsBase58ForbiddenChars(t *testing.T) {
	// 0, O, I and l are outside the base-58 alphabet
	for _, s := range []string{
		"0ezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263",
		"OezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263",
		"IezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263",
		"lezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263",
	} {
		assert.Equal(t, KindUnknown, Classify(s).Kind, s)
	}
}

func TestClassify_LengthWindow(t *testing.T) {
	assert.Equal(t, KindUnknown, Classify(strings.Repeat("A", 31)).Kind)
	assert.Equal(t, KindBase58, Classify(strings.Repeat("A", 32)).Kind)
	assert.Equal(t, KindBase58, Classify(strings.Repeat("A", 64)).Kind)
	assert.Equal(t, KindUnknown, Classify(strings.Repeat("A", 65)).Kind)
}

func TestClassify_EVMShape(t *testing.T) {
	assert.Equal(t, KindUnknown, Classify("0x1234").Kind)
	assert.Equal(t, KindUnknown, Classify("0x"+strings.Repeat("g", 40)).Kind)
	assert.Equal(t, KindUnknown, Classify("0x"+strings.Repeat("a", 41)).Kind)
	assert.Equal(t, KindEVM, Classify("0x"+strings.Repeat("a", 40)).Kind)
}

func TestClassify_UnknownKeepsTrimmedInput(t *testing.T) {
	c := Classify("  $BONK ")
	assert.Equal(t, KindUnknown, c.Kind)
	assert.Equal(t, "$BONK", c.Canonical)
}

func TestValidForChain(t *testing.T) {
	assert.True(t, ValidForChain(KindBase58, config.ChainSolana))
	assert.False(t, ValidForChain(KindEVM, config.ChainSolana))
	assert.True(t, ValidForChain(KindEVM, config.ChainEthereum))
	assert.True(t, ValidForChain(KindEVM, config.ChainBase))
	assert.True(t, ValidForChain(KindEVM, config.ChainBSC))
	assert.False(t, ValidForChain(KindBase58, config.ChainBSC))
	assert.False(t, ValidForChain(KindUnknown, config.ChainSolana))
}

func TestCanonicalAddress(t *testing.T) {
	assert.Equal(t, strings.ToLower(usdtEVM), CanonicalAddress(usdtEVM, config.ChainEthereum))
	assert.Equal(t, "", CanonicalAddress(usdtEVM, config.ChainSolana))
	assert.Equal(t, bonkMint, CanonicalAddress(bonkMint, config.ChainSolana))
	assert.Equal(t, "", CanonicalAddress("$BONK", config.ChainSolana))
}

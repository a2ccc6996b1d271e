package abi

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// ContractCaller is the read-only node access implementation resolution needs
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	StorageAt(ctx context.Context, account common.Address, key common.Hash, blockNumber *big.Int) ([]byte, error)
}

var (
	// implementation() selector
	implementationSelector = common.Hex2Bytes("5c60da1b")

	// getImplementation() selector
	getImplementationSelector = common.Hex2Bytes("aaf10f42")

	// keccak256("eip1967.proxy.implementation") - 1
	eip1967ImplSlot = common.HexToHash("0x360894a13ba1a3210667c828492db98dca3e2076cc3735a920a3ca505d382bbc")
)

// implCandidate is one strategy for discovering a proxy's implementation
// address. Candidates are tried in fixed order; the first success wins.
type implCandidate struct {
	name    string
	resolve func(ctx context.Context, caller ContractCaller, proxy common.Address) (common.Address, error)
}

var implCandidates = []implCandidate{
	{name: "implementation()", resolve: callForAddress(implementationSelector)},
	{name: "getImplementation()", resolve: callForAddress(getImplementationSelector)},
	{name: "eip1967-slot", resolve: readImplSlot},
}

// ResolveImplementation discovers the implementation contract behind a
// proxy. Each candidate failure is logged and the next candidate is tried;
// an error is returned only when every candidate fails.
func ResolveImplementation(ctx context.Context, caller ContractCaller, proxy common.Address, logger *zap.Logger) (common.Address, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	for _, candidate := range implCandidates {
		addr, err := candidate.resolve(ctx, caller, proxy)
		if err != nil {
			logger.Debug("implementation candidate failed",
				zap.String("candidate", candidate.name),
				zap.String("proxy", proxy.Hex()),
				zap.Error(err),
			)
			continue
		}

		logger.Info("resolved implementation address",
			zap.String("candidate", candidate.name),
			zap.String("proxy", proxy.Hex()),
			zap.String("implementation", addr.Hex()),
		)
		return addr, nil
	}

	return common.Address{}, fmt.Errorf("could not resolve implementation address for %s", proxy.Hex())
}

// callForAddress builds a resolver that eth_calls a no-argument method
// returning a single address
func callForAddress(selector []byte) func(context.Context, ContractCaller, common.Address) (common.Address, error) {
	return func(ctx context.Context, caller ContractCaller, proxy common.Address) (common.Address, error) {
		ret, err := caller.CallContract(ctx, ethereum.CallMsg{
			To:   &proxy,
			Data: selector,
		}, nil)
		if err != nil {
			return common.Address{}, err
		}
		return addressFromWord(ret)
	}
}

// readImplSlot reads the EIP-1967 implementation storage slot
func readImplSlot(ctx context.Context, caller ContractCaller, proxy common.Address) (common.Address, error) {
	value, err := caller.StorageAt(ctx, proxy, eip1967ImplSlot, nil)
	if err != nil {
		return common.Address{}, err
	}
	return addressFromWord(value)
}

// addressFromWord extracts an address from a 32-byte ABI word, rejecting
// short returns and the zero address
func addressFromWord(word []byte) (common.Address, error) {
	if len(word) < 32 {
		return common.Address{}, fmt.Errorf("return data too short: %d bytes", len(word))
	}
	addr := common.BytesToAddress(word[12:32])
	if addr == (common.Address{}) {
		return common.Address{}, fmt.Errorf("zero implementation address")
	}
	return addr, nil
}

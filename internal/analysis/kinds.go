package analysis

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/nao1215/addrcluster/internal/model"
)

// Address kinds reported by ClassifyAddress.
const (
	KindP2PKH   = "p2pkh"
	KindP2SH    = "p2sh"
	KindP2WPKH  = "p2wpkh"
	KindP2WSH   = "p2wsh"
	KindP2TR    = "p2tr"
	KindP2PK    = "p2pk"
	KindUnknown = "unknown"
)

// NetParams returns the chain parameters for a network name: mainnet,
// testnet, regtest or signet.
func NetParams(name string) (*chaincfg.Params, error) {
	switch name {
	case "mainnet":
		return &chaincfg.MainNetParams, nil
	case "testnet":
		return &chaincfg.TestNet3Params, nil
	case "regtest":
		return &chaincfg.RegressionNetParams, nil
	case "signet":
		return &chaincfg.SigNetParams, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownNetwork, name)
	}
}

// ClassifyAddress decodes address for the given network and returns its
// script kind. Undecodable strings are KindUnknown.
func ClassifyAddress(address string, params *chaincfg.Params) string {
	addr, err := btcutil.DecodeAddress(address, params)
	if err != nil || !addr.IsForNet(params) {
		return KindUnknown
	}

	switch addr.(type) {
	case *btcutil.AddressPubKeyHash:
		return KindP2PKH
	case *btcutil.AddressScriptHash:
		return KindP2SH
	case *btcutil.AddressWitnessPubKeyHash:
		return KindP2WPKH
	case *btcutil.AddressWitnessScriptHash:
		return KindP2WSH
	case *btcutil.AddressTaproot:
		return KindP2TR
	case *btcutil.AddressPubKey:
		return KindP2PK
	default:
		return KindUnknown
	}
}

// AddressKinds counts the addresses of view per kind.
func AddressKinds(view *model.ClusterView, params *chaincfg.Params) map[string]int {
	kinds := make(map[string]int)
	view.Each(func(_ model.ClusterID, addresses []string) bool {
		for _, addr := range addresses {
			kinds[ClassifyAddress(addr, params)]++
		}
		return true
	})
	return kinds
}

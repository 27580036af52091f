package cardanotx

import (
	"errors"

	cardanowallet "github.com/Ethernal-Tech/cardano-infrastructure/wallet"
)

// GetTxProvider resolves the destination tx provider. Ogmios takes
// precedence; blockfrost-style endpoints need an API key.
func GetTxProvider(ogmiosURL, blockfrostURL, blockfrostAPIKey string) (cardanowallet.ITxProvider, error) {
	if ogmiosURL != "" {
		return cardanowallet.NewTxProviderOgmios(ogmiosURL), nil
	}

	if blockfrostURL != "" {
		return cardanowallet.NewTxProviderBlockFrost(blockfrostURL, blockfrostAPIKey), nil
	}

	return nil, errors.New("neither an ogmios nor a blockfrost url is specified")
}

// Package log provides slog loggers that mask wallet key material.
//
// The SecureHandler wraps any slog.Handler and replaces with MaskValue:
//   - attributes whose key names key material or a credential
//     (private_key, wif, xprv, seed, mnemonic, passphrase, rpcpassword, ...)
//   - string values that look like WIF private keys, BIP-32 extended
//     private keys, BIP-39 mnemonics or PEM private key blocks
//
// Addresses, transaction ids and transaction hashes are ordinary data in
// this program and are never masked.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	slog.SetDefault(logger)
//
//	logger.Debug("cluster maps written", "user_map", path, "clusters", n)
package log

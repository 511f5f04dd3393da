// Package crypto is the reference cryptographic layer for secured messages.
//
// It implements [message.Crypter] on top of per-session key material and
// provides the pieces needed to establish that material.
//
// # Session Keys
//
// A shared session secret is expanded into a [SessionKeys] pair with
// HKDF-SHA256: one key encrypts the payload, the other keys the integrity
// check.
//
//	keys, err := crypto.DeriveSessionKeys(secret, salt)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer crypto.Wipe(keys)
//
// # Session Cipher
//
// [SessionCipher] looks keys up in a [KeyStore] by session type and id.
// Payloads are encrypted with ChaCha20 under a 12-byte nonce built from the
// message counter and the source node id, so each (counter, node) pair must
// be used once per key. The integrity check is a BLAKE2s-128 MAC over the
// nonce, the encoded header and the ciphertext.
//
//	store := crypto.NewKeyStore()
//	if err := store.Put(message.SessionTypeUnicast, 0x0042, keys); err != nil {
//	    log.Fatal(err)
//	}
//	codec, _ := message.NewCodec(message.DefaultOptions(), crypto.NewSessionCipher(store))
//
// # Handshake
//
// [Handshake] runs a Noise NN exchange (Curve25519, ChaChaPoly, SHA-256).
// Once both messages have been exchanged each side holds the same transport
// keys. [Handshake.SessionKeys] feeds them to [DeriveSessionKeys] with the
// public channel binding as salt.
//
// # Logging
//
// Operations log through [LoggerHelper], which tags every entry with the
// function and package name. Key material is never logged; [SecureFieldHash]
// prints a short preview of non-secret buffers.
package crypto

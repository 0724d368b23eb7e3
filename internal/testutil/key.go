package testutil

// Key returns a deterministic 32-byte key filled with seed.
//
// Distinct seeds give distinct keys, which is enough to exercise wrong-key
// decryption paths. Never use outside tests.
func Key(seed byte) []byte {
	key := make([]byte, 32)
	for i := range key {
		key[i] = seed
	}
	return key
}

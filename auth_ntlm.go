package smbkit

import (
	"crypto/des"
	"strings"

	"golang.org/x/crypto/md4"
)

// NTLM challenge/response per MS-NLMP section 3.3.1 (NTLMv1). The server
// challenge is 8 bytes; each response is 24 bytes built from a 21-byte
// padded hash. NTLMv2 is not implemented.

// lmMagic is the plaintext DES-encrypted with the password halves to form
// the LM hash.
var lmMagic = []byte("KGS!@#$%")

// desKeyFrom56 expands a 7-byte key into the 8-byte DES key layout, the
// 56 key bits spread across the high 7 bits of each byte. DES ignores
// the low (parity) bit of every byte, so no parity is computed for it.
func desKeyFrom56(keyin []byte) []byte {
	key := make([]byte, 8)
	key[0] = keyin[0]
	key[1] = (keyin[0] << 7) | (keyin[1] >> 1)
	key[2] = (keyin[1] << 6) | (keyin[2] >> 2)
	key[3] = (keyin[2] << 5) | (keyin[3] >> 3)
	key[4] = (keyin[3] << 4) | (keyin[4] >> 4)
	key[5] = (keyin[4] << 3) | (keyin[5] >> 5)
	key[6] = (keyin[5] << 2) | (keyin[6] >> 6)
	key[7] = keyin[6] << 1
	return key
}

// desEncryptBlock encrypts one 8-byte block under a 7-byte key.
func desEncryptBlock(key7, block []byte) []byte {
	cipher, err := des.NewCipher(desKeyFrom56(key7))
	if err != nil {
		// des.NewCipher only fails on a bad key length.
		panic(err)
	}
	out := make([]byte, 8)
	cipher.Encrypt(out, block)
	return out
}

// LMHash computes the 21-byte padded LM hash of a password: the password
// upper-cased and truncated to 14 OEM bytes, each 7-byte half encrypting
// the magic constant.
func LMHash(password string) [21]byte {
	var hash [21]byte

	pw := make([]byte, 14)
	copy(pw, strings.ToUpper(password))

	copy(hash[0:8], desEncryptBlock(pw[0:7], lmMagic))
	copy(hash[8:16], desEncryptBlock(pw[7:14], lmMagic))
	return hash
}

// NTHash computes the 21-byte padded NT hash of a password: MD4 over the
// UTF-16LE encoding of the password.
func NTHash(password string) [21]byte {
	var hash [21]byte

	h := md4.New()
	h.Write(EncodeStringToUTF16LE(password))
	copy(hash[0:16], h.Sum(nil))
	return hash
}

// LMResponse computes the 24-byte challenge response: the 8-byte server
// challenge DES-encrypted under each 7-byte third of the padded hash.
// Both the LM and the NT response run through this with their respective
// hashes.
func LMResponse(hash [21]byte, challenge [8]byte) [24]byte {
	var resp [24]byte

	copy(resp[0:8], desEncryptBlock(hash[0:7], challenge[:]))
	copy(resp[8:16], desEncryptBlock(hash[7:14], challenge[:]))
	copy(resp[16:24], desEncryptBlock(hash[14:21], challenge[:]))
	return resp
}

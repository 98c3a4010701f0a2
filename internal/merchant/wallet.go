package merchant

import (
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

// ChecksumAddress validates a 20-byte hex account address and returns its
// EIP-55 mixed-case form. All-lower or all-upper input is accepted as is;
// mixed-case input must already carry a valid checksum.
func ChecksumAddress(addr string) (string, error) {
	addr = strings.TrimSpace(addr)
	if !strings.HasPrefix(addr, "0x") && !strings.HasPrefix(addr, "0X") {
		return "", fmt.Errorf("%w: wallet address must start with 0x", ErrInvalidInput)
	}
	body := addr[2:]
	if len(body) != 40 {
		return "", fmt.Errorf("%w: wallet address must be 40 hex characters", ErrInvalidInput)
	}
	if _, err := hex.DecodeString(body); err != nil {
		return "", fmt.Errorf("%w: wallet address is not hex", ErrInvalidInput)
	}

	checksummed := eip55(strings.ToLower(body))
	lower, upper := strings.ToLower(body), strings.ToUpper(body)
	if body != lower && body != upper && "0x"+body != checksummed {
		return "", fmt.Errorf("%w: wallet address checksum mismatch", ErrInvalidInput)
	}
	return checksummed, nil
}

func eip55(lowerHex string) string {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(lowerHex))
	digest := hex.EncodeToString(h.Sum(nil))

	out := []byte(lowerHex)
	for i, c := range out {
		if c >= 'a' && c <= 'f' && digest[i] >= '8' {
			out[i] = c - 32
		}
	}
	return "0x" + string(out)
}

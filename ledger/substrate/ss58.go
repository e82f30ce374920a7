package substrate

import (
	"bytes"
	"fmt"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/blake2b"
)

const (
	accountIDLen = 32
	checksumLen  = 2
)

var ss58Prefix = []byte("SS58PRE")

// DecodeAddress decodes an SS58 encoded account address, returning its
// network prefix and 32 byte account id.
func DecodeAddress(addr string) (uint16, []byte, error) {
	data, err := base58.Decode(addr)
	if err != nil {
		return 0, nil, fmt.Errorf("decoding base58: %s", err)
	}
	if len(data) < 2 {
		return 0, nil, fmt.Errorf("address too short")
	}

	var network uint16
	prefixLen := 1
	if data[0]&0b0100_0000 != 0 {
		// Two byte network prefix.
		prefixLen = 2
		lower := (data[0] << 2) | (data[1] >> 6)
		upper := data[1] & 0b0011_1111
		network = uint16(lower) | uint16(upper)<<8
	} else {
		network = uint16(data[0])
	}
	if len(data) != prefixLen+accountIDLen+checksumLen {
		return 0, nil, fmt.Errorf("unexpected address length %d", len(data))
	}

	body := data[:prefixLen+accountIDLen]
	sum, err := checksum(body)
	if err != nil {
		return 0, nil, err
	}
	if !bytes.Equal(sum, data[prefixLen+accountIDLen:]) {
		return 0, nil, fmt.Errorf("invalid checksum")
	}
	id := make([]byte, accountIDLen)
	copy(id, data[prefixLen:prefixLen+accountIDLen])
	return network, id, nil
}

// EncodeAddress encodes an account id as an SS58 address for network.
func EncodeAddress(network uint16, id []byte) (string, error) {
	if len(id) != accountIDLen {
		return "", fmt.Errorf("account id should be %d bytes", accountIDLen)
	}
	if network >= 16384 {
		return "", fmt.Errorf("network prefix %d out of range", network)
	}
	var prefix []byte
	if network < 64 {
		prefix = []byte{byte(network)}
	} else {
		prefix = []byte{
			byte((network&0b0000_0000_1111_1100)>>2) | 0b0100_0000,
			byte(network>>8) | byte((network&0b0000_0000_0000_0011)<<6),
		}
	}
	body := append(prefix, id...)
	sum, err := checksum(body)
	if err != nil {
		return "", err
	}
	return base58.Encode(append(body, sum...)), nil
}

func checksum(body []byte) ([]byte, error) {
	h, err := blake2b.New512(nil)
	if err != nil {
		return nil, fmt.Errorf("creating hasher: %s", err)
	}
	_, _ = h.Write(ss58Prefix)
	_, _ = h.Write(body)
	return h.Sum(nil)[:checksumLen], nil
}

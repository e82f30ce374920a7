package substrate

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// decodeDryRun interprets the SCALE encoded ApplyExtrinsicResult returned
// by system_dryRun:
// Result<Result<(), DispatchError>, TransactionValidityError>.
func decodeDryRun(res string) (bool, string, error) {
	buf, err := hex.DecodeString(strings.TrimPrefix(res, "0x"))
	if err != nil {
		return false, "", fmt.Errorf("decoding dry run result: %s", err)
	}
	if len(buf) < 2 {
		return false, "", fmt.Errorf("dry run result too short: %s", res)
	}
	switch buf[0] {
	case 0x00:
		switch buf[1] {
		case 0x00:
			return true, "dispatch ok", nil
		case 0x01:
			return false, fmt.Sprintf("dispatch error: 0x%x", buf[2:]), nil
		}
	case 0x01:
		switch buf[1] {
		case 0x00:
			return false, fmt.Sprintf("invalid transaction: 0x%x", buf[2:]), nil
		case 0x01:
			return false, fmt.Sprintf("unknown transaction validity: 0x%x", buf[2:]), nil
		}
	}
	return false, "", fmt.Errorf("unexpected dry run result: %s", res)
}

package vault

import (
	"fmt"

	"github.com/guardianvault/vaultd/internal/common"
)

// Amounts are unsigned satoshis throughout the core. 1 ckBTC is
// 100,000,000 satoshis; the presentation layer performs display scaling
// only, the core never truncates.
const SatoshisPerCkBtc = 100_000_000

// MemoMaxLen caps transfer memos, matching the bound the wallet UI
// enforces on its side.
const MemoMaxLen = 64

// checkedAdd returns a+b and whether the sum overflowed uint64.
func checkedAdd(a, b uint64) (uint64, bool) {
	sum := a + b
	return sum, sum < a
}

// validateMemo rejects memos larger than MemoMaxLen.
func validateMemo(memo []byte) error {
	if len(memo) > MemoMaxLen {
		return fmt.Errorf("%w: %d bytes, max %d", common.ErrMemoTooLarge, len(memo), MemoMaxLen)
	}
	return nil
}

package stable

import "math/big"

const tokenDecimals = 18

var (
	// precision is the 1e18 fixed-point scale shared by token amounts,
	// USD values and health factors.
	precision = mustBigInt("1000000000000000000")
	// maxHealthFactor is the sentinel returned for positions with no debt.
	maxHealthFactor = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
)

func mustBigInt(value string) *big.Int {
	v, ok := new(big.Int).SetString(value, 10)
	if !ok {
		panic("invalid big integer constant")
	}
	return v
}

// mulDiv computes a*b/den with arbitrary precision, flooring the result.
func mulDiv(a, b, den *big.Int) *big.Int {
	if a == nil || b == nil || den == nil || den.Sign() == 0 {
		return big.NewInt(0)
	}
	out := new(big.Int).Mul(a, b)
	return out.Quo(out, den)
}

// pow10 returns 10^n for small non-negative n.
func pow10(n uint8) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

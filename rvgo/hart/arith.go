package hart

import "github.com/holiman/uint256"

func signExtend32(v uint64) uint64 {
	return uint64(int64(int32(uint32(v))))
}

func boolToU64(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

func signExtend64To256(v uint64) *uint256.Int {
	out := uint256.NewInt(v)
	if int64(v) < 0 {
		top := new(uint256.Int).Not(new(uint256.Int))
		top.Lsh(top, 64)
		out.Or(out, top)
	}
	return out
}

// mulh returns the upper 64 bits of the signed 128-bit product.
func mulh(x, y uint64) uint64 {
	out := new(uint256.Int).Mul(signExtend64To256(x), signExtend64To256(y))
	return out.Rsh(out, 64).Uint64()
}

// mulhu returns the upper 64 bits of the unsigned 128-bit product.
func mulhu(x, y uint64) uint64 {
	out := new(uint256.Int).Mul(uint256.NewInt(x), uint256.NewInt(y))
	return out.Rsh(out, 64).Uint64()
}

// Division follows the RISC-V M extension: no traps, division by zero yields
// all ones (quotient) or the dividend (remainder), and signed overflow yields
// the dividend (quotient) or zero (remainder).

func div64(x, y uint64) uint64 {
	if y == 0 {
		return ^uint64(0)
	}
	if int64(x) == int64(-1<<63) && int64(y) == -1 {
		return x
	}
	return uint64(int64(x) / int64(y))
}

func divu64(x, y uint64) uint64 {
	if y == 0 {
		return ^uint64(0)
	}
	return x / y
}

func rem64(x, y uint64) uint64 {
	if y == 0 {
		return x
	}
	if int64(x) == int64(-1<<63) && int64(y) == -1 {
		return 0
	}
	return uint64(int64(x) % int64(y))
}

func remu64(x, y uint64) uint64 {
	if y == 0 {
		return x
	}
	return x % y
}

func div32(x, y uint64) uint64 {
	a, b := int32(x), int32(y)
	switch {
	case b == 0:
		return ^uint64(0)
	case a == -1<<31 && b == -1:
		return signExtend32(uint64(uint32(a)))
	}
	return uint64(int64(a / b))
}

func divu32(x, y uint64) uint64 {
	a, b := uint32(x), uint32(y)
	if b == 0 {
		return ^uint64(0)
	}
	return signExtend32(uint64(a / b))
}

func rem32(x, y uint64) uint64 {
	a, b := int32(x), int32(y)
	switch {
	case b == 0:
		return signExtend32(x)
	case a == -1<<31 && b == -1:
		return 0
	}
	return uint64(int64(a % b))
}

func remu32(x, y uint64) uint64 {
	a, b := uint32(x), uint32(y)
	if b == 0 {
		return signExtend32(x)
	}
	return signExtend32(uint64(a % b))
}

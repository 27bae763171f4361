package infra

type Signed interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64
}

// Unsigned is a constraint that permits any unsigned integer type.
type Unsigned interface {
	~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

type Integer interface {
	Signed | Unsigned
}

type Float interface {
	~float32 | ~float64
}

// OrderedKey
// byte => ~uint8
type OrderedKey interface {
	Integer | Float | ~string
}

// OrderedKeyComparator
// Assume i is the new key.
//  1. i == j, return 0
//  2. i > j, return 1, turn to right part.
//  3. i < j, return -1, turn to left part.
type OrderedKeyComparator[K OrderedKey] func(i, j K) int

func OrderedKeyCompare[K OrderedKey](i, j K) int {
	if i == j {
		return 0
	} else if i < j {
		return -1
	}
	return 1
}

// MaxSigned returns the largest value of the signed integer type S.
func MaxSigned[S Signed]() S {
	var s S
	for bits := 8; ; bits <<= 1 {
		s = S(uint64(1)<<(bits-1) - 1)
		if s+1 < s || bits == 64 {
			return s
		}
	}
}

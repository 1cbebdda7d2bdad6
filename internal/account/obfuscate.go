package account

import "hash/fnv"

// FuzzObfuscator is the default Obfuscator: a deterministic per-path fuzz
// of displayed sizes and timestamps. The same file always fuzzes the same
// way, so listings stay stable across requests, but neither value matches
// the on-disk reality.
type FuzzObfuscator struct{}

// NewFuzzObfuscator returns the default obfuscator.
func NewFuzzObfuscator() FuzzObfuscator { return FuzzObfuscator{} }

func pathSeed(path string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(path))
	return h.Sum64()
}

// Size skews the displayed size by up to ±25%, keeping it non-negative.
func (FuzzObfuscator) Size(path string, size int64) int64 {
	if size <= 0 {
		return size
	}
	seed := pathSeed(path)
	skew := int64(seed%51) - 25 // -25..+25 percent
	out := size + size*skew/100
	if out < 0 {
		return 0
	}
	return out
}

// ModTime shifts the displayed timestamp by up to ±30 days.
func (FuzzObfuscator) ModTime(path string, modMillis int64) int64 {
	const thirtyDaysMillis = 30 * 24 * 60 * 60 * 1000
	seed := pathSeed(path + "/t")
	shift := int64(seed%(2*thirtyDaysMillis)) - thirtyDaysMillis
	out := modMillis + shift
	if out < 0 {
		return 0
	}
	return out
}

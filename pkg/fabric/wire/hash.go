package wire

// FNV-1a constants, folded 64-bit at a time. Good enough distribution for
// pooling buckets and cheap to compute over the small structures here.
const (
	hashSeed  uint64 = 14695981039346656037
	hashPrime uint64 = 1099511628211
)

func hashMix(h, x uint64) uint64 {
	return (h ^ x) * hashPrime
}

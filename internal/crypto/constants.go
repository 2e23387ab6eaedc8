package crypto

const (
	// HashSize is the digest length of HashData.
	HashSize = 32
)

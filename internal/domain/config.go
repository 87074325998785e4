package domain

// KeyPrefix namespaces every key this application writes to the cache store.
const KeyPrefix = "photofind:"

// VectorConfig describes the embedding space all compared vectors live in.
type VectorConfig struct {
	Dimensions int
}

// DefaultVectorConfig returns the CLIP ViT-B/32 embedding space.
func DefaultVectorConfig() VectorConfig {
	return VectorConfig{Dimensions: 512}
}

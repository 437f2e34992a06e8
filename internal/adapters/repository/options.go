package repository

// Option applies a configuration option to the TreapStore.
type Option func(*TreapStore)

// WithSeed seeds the node priority source, making tree shapes
// reproducible in tests.
func WithSeed(seed int64) Option {
	return func(s *TreapStore) {
		s.seed = seed
	}
}

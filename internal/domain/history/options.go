package history

type config struct {
	capacity int
}

// Option configures a Stack.
type Option func(*config)

// WithCapacity bounds the stack to n entries. n <= 0 keeps it unbounded.
func WithCapacity(n int) Option {
	return func(c *config) {
		if n < 0 {
			n = 0
		}
		c.capacity = n
	}
}

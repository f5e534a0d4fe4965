package link

import "github.com/jaevor/go-nanoid"

// Generator produces candidate identifiers. Generation is pure with respect
// to the store: collisions are possible and are handled by the Registry's
// retry loop, not by generator entropy alone.
type Generator func() string

// NewGenerator returns a nanoid-backed Generator producing URL-safe
// identifiers of the given length.
func NewGenerator(length int) (Generator, error) {
	gen, err := nanoid.Standard(length)
	if err != nil {
		return nil, err
	}

	return Generator(gen), nil
}

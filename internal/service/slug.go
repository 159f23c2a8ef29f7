package service

import (
	"crypto/rand"
	"fmt"

	"github.com/mr-tron/base58"
)

// ShareSlugLength is the length of every generated share slug
const ShareSlugLength = 10

// newShareSlug returns a random base58 token. Base58 leaves out 0, O, I and
// l, so slugs survive being read aloud or retyped.
func newShareSlug() (string, error) {
	buf := make([]byte, ShareSlugLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	// 10 random bytes always encode to at least 10 base58 characters
	return base58.Encode(buf)[:ShareSlugLength], nil
}

package platform

import (
	"crypto/rand"

	"github.com/google/uuid"
)

const tokenAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
const tokenLength = 10

// NewID returns the primary key for a new record: the entity kind, an
// underscore, then a UUID. The kind prefix makes ids self-describing in
// logs and foreign-key columns.
func NewID(kind string) string {
	return kind + "_" + uuid.New().String()
}

// NewToken returns a short random token for correlating outbound requests,
// such as webhook delivery ids.
func NewToken() string {
	b := make([]byte, tokenLength)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand: " + err.Error())
	}
	for i := range b {
		b[i] = tokenAlphabet[b[i]%byte(len(tokenAlphabet))]
	}
	return string(b)
}

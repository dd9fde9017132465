package siwe

import (
	"io"

	"github.com/dchest/uniuri"
	"github.com/pkg/errors"
)

const nonceLength = 11

// NonceGenerator produces alphanumeric nonces. A nil Rand uses uniuri,
// which reads from crypto/rand.
type NonceGenerator struct {
	Rand io.Reader
}

func (g NonceGenerator) Generate() (string, error) {
	if g.Rand == nil {
		return uniuri.NewLenChars(nonceLength, uniuri.StdChars), nil
	}
	nonce, err := readChars(g.Rand, nonceLength, uniuri.StdChars)
	if err != nil {
		return "", errors.Wrap(err, "reading nonce entropy")
	}
	return nonce, nil
}

// GenerateNonce returns a fresh 11 character nonce from crypto/rand.
func GenerateNonce() string {
	return uniuri.NewLenChars(nonceLength, uniuri.StdChars)
}

// readChars draws length characters from chars, discarding bytes above the
// largest multiple of len(chars) so every character is equally likely.
func readChars(r io.Reader, length int, chars []byte) (string, error) {
	maxByte := 255 - (256 % len(chars))
	out := make([]byte, 0, length)
	buf := make([]byte, length)
	for len(out) < length {
		n := length - len(out)
		if _, err := io.ReadFull(r, buf[:n]); err != nil {
			return "", err
		}
		for _, b := range buf[:n] {
			if int(b) > maxByte {
				continue
			}
			out = append(out, chars[int(b)%len(chars)])
		}
	}
	return string(out), nil
}

package streaming

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"
)

// digitAlphabet substitutes each decimal digit in a number before it is
// embedded in the handshake token, obscuring it from casual inspection. It
// is not a cryptographic transform; see the design notes on randomness.
var digitAlphabet = map[byte]byte{
	'0': 'Q', '1': 'B', '2': 'W', '3': 'S', '4': 'P',
	'5': 'H', '6': 'D', '7': 'X', '8': 'Z', '9': 'U',
}

func encodeDigits(s string) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		if mapped, ok := digitAlphabet[s[i]]; ok {
			out[i] = mapped
		} else {
			out[i] = s[i]
		}
	}
	return string(out)
}

// encodeInt pads n to width digits with leading zeros, then encodes every
// digit through digitAlphabet.
func encodeInt(n, width int) string {
	padded := fmt.Sprintf("%0*d", width, n)
	return encodeDigits(padded)
}

// BuildToken produces the query-string token the streaming handshake signs
// with: the secret (trailing "=" stripped) is spliced around an obfuscated
// current timestamp at a pseudo-random offset, with the offset and the
// timestamp's length themselves encoded ahead of the payload.
//
// secret[:start] + ts + secret[start:], where ts is the digit-substituted
// form of the current unix-millis timestamp, start >= 2 is a pseudo-random
// splice point into secret, and the result is prefixed with start (3
// encoded digits) and len(ts) (2 encoded digits) so the server can reverse
// the splice.
func BuildToken(envSecret string, now time.Time, rng *rand.Rand) string {
	secret := strings.TrimRight(envSecret, "=")
	ts := strconv.FormatInt(now.UnixMilli(), 10)
	encodedTS := encodeDigits(ts)

	start := int(rng.Float64() * float64(len(secret)))
	if start < 2 {
		start = 2
	}
	if start > len(secret) {
		start = len(secret)
	}

	var b strings.Builder
	b.WriteString(encodeInt(start, 3))
	b.WriteString(encodeInt(len(encodedTS), 2))
	b.WriteString(secret[:start])
	b.WriteString(encodedTS)
	b.WriteString(secret[start:])
	return b.String()
}

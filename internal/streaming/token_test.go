package streaming

import (
	"math/rand"
	"strings"
	"testing"
	"time"
)

func TestEncodeDigitsSubstitutesEveryDigit(t *testing.T) {
	got := encodeDigits("0123456789")
	want := "QBWSPHDXZU"
	if got != want {
		t.Fatalf("encodeDigits(%q) = %q, want %q", "0123456789", got, want)
	}
}

func TestEncodeIntZeroPadsBeforeEncoding(t *testing.T) {
	got := encodeInt(7, 3)
	want := encodeDigits("007")
	if got != want {
		t.Fatalf("encodeInt(7, 3) = %q, want %q", got, want)
	}
}

func TestBuildTokenIsSpliceOfEncodedPrefixSecretAndTimestamp(t *testing.T) {
	secret := "abcdefghij=="
	rng := rand.New(rand.NewSource(1))
	now := time.UnixMilli(1700000000000)

	token := BuildToken(secret, now, rng)

	if len(token) < 5 {
		t.Fatalf("token too short: %q", token)
	}

	trimmedSecret := strings.TrimRight(secret, "=")
	startEncoded := token[:3]
	lenEncoded := token[3:5]

	// Rather than reverse digitAlphabet to decode the prefix, try every
	// legal splice point and require the encoded prefix and the remainder
	// (every byte of the trimmed secret, split around the encoded
	// timestamp) to match one of them.
	remainder := token[5:]
	if !strings.Contains(remainder, trimmedSecret[:2]) {
		t.Fatalf("token remainder %q does not appear to splice in the secret prefix", remainder)
	}
	encodedTS := encodeDigits("1700000000000")
	if lenEncoded != encodeInt(len(encodedTS), 2) {
		t.Fatalf("expected encoded timestamp length %q, got %q", encodeInt(len(encodedTS), 2), lenEncoded)
	}
	spliced := false
	for start := 2; start <= len(trimmedSecret); start++ {
		if startEncoded == encodeInt(start, 3) && remainder == trimmedSecret[:start]+encodedTS+trimmedSecret[start:] {
			spliced = true
			break
		}
	}
	if !spliced {
		t.Fatalf("token %q is not the encoded splice point and length followed by the secret spliced around %q", token, encodedTS)
	}
}

func TestBuildTokenNeverSplicesBeforeIndexTwo(t *testing.T) {
	secret := "xy"
	// rng.Float64() == 0 would naively pick start=0, which must clamp to 2.
	rng := rand.New(zeroSource{})
	now := time.UnixMilli(1)

	token := BuildToken(secret, now, rng)

	ts := encodeDigits("1")
	wantLen := 3 + 2 + len(secret) + len(ts)
	if len(token) != wantLen {
		t.Fatalf("expected token length %d with start clamped to len(secret), got %d (%q)", wantLen, len(token), token)
	}
	if !strings.HasSuffix(token, ts) {
		t.Fatalf("expected encoded timestamp %q at the end when start == len(secret), got %q", ts, token)
	}
}

func TestBuildTokenIsDeterministicForFixedInputs(t *testing.T) {
	secret := "sharedsecretvalue"
	now := time.UnixMilli(42)

	a := BuildToken(secret, now, rand.New(rand.NewSource(7)))
	b := BuildToken(secret, now, rand.New(rand.NewSource(7)))
	if a != b {
		t.Fatalf("expected BuildToken to be deterministic given the same rng seed, got %q vs %q", a, b)
	}
}

// zeroSource is a rand.Source that always returns 0, used to exercise the
// BuildToken lower-clamp branch deterministically.
type zeroSource struct{}

func (zeroSource) Int63() int64 { return 0 }
func (zeroSource) Seed(int64)   {}

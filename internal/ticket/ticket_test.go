package ticket

import (
	"bytes"
	"errors"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 4, 10, 0, 0, 123456789, time.UTC)

func newTestCodec(seed byte) *Codec {
	return NewCodec(
		WithRandom(bytes.NewReader(bytes.Repeat([]byte{seed}, 1024))),
		WithClock(func() time.Time { return fixedNow }),
	)
}

func TestIssueIsDeterministicWithInjectedSource(t *testing.T) {
	a, err := newTestCodec(7).Issue("promo", "asset", "wallet", 2*time.Minute)
	require.NoError(t, err)
	b, err := newTestCodec(7).Issue("promo", "asset", "wallet", 2*time.Minute)
	require.NoError(t, err)

	require.Equal(t, a, b)
	require.Len(t, a.Nonce, MinNonceBytes)
	require.Equal(t, fixedNow.Add(2*time.Minute).Truncate(time.Millisecond), a.ExpiresAt)
}

func TestIssueFailsWhenRandomSourceIsShort(t *testing.T) {
	codec := NewCodec(WithRandom(bytes.NewReader([]byte{1, 2, 3})))
	_, err := codec.Issue("promo", "asset", "wallet", time.Minute)
	require.Error(t, err)
}

func TestIssueRejectsMissingFields(t *testing.T) {
	_, err := newTestCodec(1).Issue("", "asset", "wallet", time.Minute)
	require.ErrorIs(t, err, ErrMalformed)
	_, err = newTestCodec(1).Issue("promo", "asset", "wallet", 0)
	require.Error(t, err)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	codec := NewCodec(WithNonceBytes(24))
	original, err := codec.Issue("7b0c1f5e-0000-4000-8000-000000000001", "So1anaMintAddre55", "wallet-ü", 2*time.Minute)
	require.NoError(t, err)

	encoded, err := Encode(original)
	require.NoError(t, err)
	require.NotContains(t, encoded, "=")
	require.NotContains(t, encoded, "+")
	require.NotContains(t, encoded, "/")

	decoded, err := Decode(encoded)
	require.NoError(t, err)
	require.Equal(t, original.PromotionID, decoded.PromotionID)
	require.Equal(t, original.AssetRef, decoded.AssetRef)
	require.Equal(t, original.ClaimantID, decoded.ClaimantID)
	require.Equal(t, original.Nonce, decoded.Nonce)
	require.True(t, original.ExpiresAt.Equal(decoded.ExpiresAt))

	again, err := Encode(decoded)
	require.NoError(t, err)
	require.Equal(t, encoded, again)
}

func TestRoundTripLawForRandomTickets(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	codec := NewCodec(WithRandom(rng), WithClock(func() time.Time { return fixedNow }))
	for i := 0; i < 200; i++ {
		issued, err := codec.Issue(randomText(rng), randomText(rng), randomText(rng), time.Duration(1+rng.Intn(600))*time.Second)
		require.NoError(t, err)
		encoded, err := Encode(issued)
		require.NoError(t, err)
		decoded, err := Decode(encoded)
		require.NoError(t, err)
		again, err := Encode(decoded)
		require.NoError(t, err)
		require.Equal(t, encoded, again)
	}
}

func randomText(rng *rand.Rand) string {
	const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789-_"
	n := 1 + rng.Intn(64)
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteByte(alphabet[rng.Intn(len(alphabet))])
	}
	return b.String()
}

func TestDecodeRejectsMalformedInput(t *testing.T) {
	valid, err := Encode(mustIssue(t))
	require.NoError(t, err)
	raw, err := encoding.DecodeString(valid)
	require.NoError(t, err)

	badVersion := append([]byte{9}, raw[1:]...)
	trailing := append(append([]byte(nil), raw...), 0x00)
	shortNonce := buildRaw("p", "a", "c", bytes.Repeat([]byte{1}, MinNonceBytes-1), fixedNow)
	emptyField := buildRaw("", "a", "c", bytes.Repeat([]byte{1}, MinNonceBytes), fixedNow)

	cases := map[string]string{
		"empty":         "",
		"not base64":    "***",
		"padded":        valid + "==",
		"line break":    valid[:4] + "\n" + valid[4:],
		"truncated":     valid[:len(valid)-3],
		"bad version":   encoding.EncodeToString(badVersion),
		"trailing":      encoding.EncodeToString(trailing),
		"short nonce":   encoding.EncodeToString(shortNonce),
		"missing field": encoding.EncodeToString(emptyField),
		"too long":      strings.Repeat("A", MaxEncodedLength+1),
	}
	for name, input := range cases {
		_, err := Decode(input)
		require.Errorf(t, err, "case %s", name)
		require.Truef(t, errors.Is(err, ErrMalformed), "case %s: %v", name, err)
		var decodeErr *DecodeError
		require.Truef(t, errors.As(err, &decodeErr), "case %s", name)
	}
}

func TestDecodeNeverPanicsOnMutations(t *testing.T) {
	valid, err := Encode(mustIssue(t))
	require.NoError(t, err)
	raw, err := encoding.DecodeString(valid)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 2000; i++ {
		mutated := append([]byte(nil), raw...)
		switch rng.Intn(3) {
		case 0:
			mutated[rng.Intn(len(mutated))] ^= byte(1 + rng.Intn(255))
		case 1:
			mutated = mutated[:rng.Intn(len(mutated))]
		default:
			extra := make([]byte, 1+rng.Intn(8))
			rng.Read(extra)
			mutated = append(mutated, extra...)
		}
		require.NotPanics(t, func() {
			_, _ = Decode(encoding.EncodeToString(mutated))
		})
	}
}

func TestIsLiveBoundary(t *testing.T) {
	tk := mustIssue(t)
	require.True(t, tk.IsLive(tk.ExpiresAt.Add(-time.Millisecond)))
	require.False(t, tk.IsLive(tk.ExpiresAt))
	require.False(t, tk.IsLive(tk.ExpiresAt.Add(time.Second)))
}

func TestFingerprintHidesNonce(t *testing.T) {
	tk := mustIssue(t)
	fp := tk.Fingerprint()
	require.Len(t, fp, 16)
	require.NotContains(t, tk.NonceHex(), fp)
	require.Equal(t, fp, FingerprintHex(tk.NonceHex()))
	require.NotEqual(t, fp, Fingerprint(bytes.Repeat([]byte{0xAB}, MinNonceBytes)))
}

func mustIssue(t *testing.T) Ticket {
	t.Helper()
	tk, err := newTestCodec(3).Issue("promo-1", "asset-1", "wallet-1", 2*time.Minute)
	require.NoError(t, err)
	return tk
}

func buildRaw(promotionID, assetRef, claimantID string, nonce []byte, expires time.Time) []byte {
	buf := []byte{Version}
	for _, s := range []string{promotionID, assetRef, claimantID} {
		buf = append(buf, byte(len(s)>>8), byte(len(s)))
		buf = append(buf, s...)
	}
	buf = append(buf, byte(len(nonce)))
	buf = append(buf, nonce...)
	ms := uint64(expires.UnixMilli())
	for shift := 56; shift >= 0; shift -= 8 {
		buf = append(buf, byte(ms>>uint(shift)))
	}
	return buf
}

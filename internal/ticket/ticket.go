// Package ticket 生成与解析一次性核销凭证。
//
// 编码格式（版本 1）：
//
//	version(1) | len16+promotion_id | len16+asset_ref | len16+claimant_id | len8+nonce | expires_at_unix_ms(int64 BE)
//
// 整体使用无填充的 URL 安全 base64，可直接放入二维码或文本框。
package ticket

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"
)

const (
	// Version 当前编码版本
	Version byte = 1
	// MinNonceBytes nonce 最小随机字节数
	MinNonceBytes = 16
	// MaxEncodedLength 拒绝超长输入
	MaxEncodedLength = 2048
)

var encoding = base64.RawURLEncoding.Strict()

// ErrMalformed 凭证无法解析
var ErrMalformed = errors.New("malformed ticket")

// DecodeError 解析失败原因
type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string {
	return "malformed ticket: " + e.Reason
}

// Is 使 errors.Is(err, ErrMalformed) 成立
func (e *DecodeError) Is(target error) bool {
	return target == ErrMalformed
}

func malformed(format string, args ...interface{}) error {
	return &DecodeError{Reason: fmt.Sprintf(format, args...)}
}

// Ticket 核销凭证
type Ticket struct {
	PromotionID string
	AssetRef    string
	ClaimantID  string
	Nonce       []byte
	ExpiresAt   time.Time
}

// IsLive 当前时间严格早于过期时间
func (t Ticket) IsLive(now time.Time) bool {
	return now.Before(t.ExpiresAt)
}

// NonceHex 返回 nonce 的十六进制表示，用作存储键
func (t Ticket) NonceHex() string {
	return hex.EncodeToString(t.Nonce)
}

// Fingerprint 返回可写入日志的 nonce 指纹
func (t Ticket) Fingerprint() string {
	return Fingerprint(t.Nonce)
}

// Fingerprint 计算 blake2b 指纹的前 8 字节，不可反推 nonce
func Fingerprint(nonce []byte) string {
	sum := blake2b.Sum256(nonce)
	return hex.EncodeToString(sum[:8])
}

// FingerprintHex 对十六进制 nonce 计算指纹
func FingerprintHex(nonceHex string) string {
	raw, err := hex.DecodeString(nonceHex)
	if err != nil {
		return Fingerprint([]byte(nonceHex))
	}
	return Fingerprint(raw)
}

// Codec 凭证签发器，随机源与时钟可注入
type Codec struct {
	random     io.Reader
	now        func() time.Time
	nonceBytes int
}

// Option 签发器配置项
type Option func(*Codec)

// WithRandom 注入随机源
func WithRandom(r io.Reader) Option {
	return func(c *Codec) {
		if r != nil {
			c.random = r
		}
	}
}

// WithClock 注入时钟
func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		if now != nil {
			c.now = now
		}
	}
}

// WithNonceBytes 设置 nonce 长度，低于最小值时按最小值处理
func WithNonceBytes(n int) Option {
	return func(c *Codec) {
		if n > math.MaxUint8 {
			n = math.MaxUint8
		}
		if n >= MinNonceBytes {
			c.nonceBytes = n
		}
	}
}

// NewCodec 创建签发器，默认使用 crypto/rand
func NewCodec(opts ...Option) *Codec {
	c := &Codec{
		random:     rand.Reader,
		now:        time.Now,
		nonceBytes: MinNonceBytes,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Now 返回签发器时钟的当前时间
func (c *Codec) Now() time.Time {
	return c.now()
}

// Issue 签发新凭证，过期时间截断到毫秒以保证编码往返一致
func (c *Codec) Issue(promotionID, assetRef, claimantID string, ttl time.Duration) (Ticket, error) {
	if ttl <= 0 {
		return Ticket{}, fmt.Errorf("ticket ttl must be positive: %s", ttl)
	}
	nonce := make([]byte, c.nonceBytes)
	if _, err := io.ReadFull(c.random, nonce); err != nil {
		return Ticket{}, fmt.Errorf("read nonce randomness: %w", err)
	}
	t := Ticket{
		PromotionID: promotionID,
		AssetRef:    assetRef,
		ClaimantID:  claimantID,
		Nonce:       nonce,
		ExpiresAt:   c.now().Add(ttl).UTC().Truncate(time.Millisecond),
	}
	if err := validate(t); err != nil {
		return Ticket{}, err
	}
	return t, nil
}

func validate(t Ticket) error {
	fields := []struct {
		name  string
		value string
	}{
		{"promotion_id", t.PromotionID},
		{"asset_ref", t.AssetRef},
		{"claimant_id", t.ClaimantID},
	}
	for _, f := range fields {
		if f.value == "" {
			return malformed("missing %s", f.name)
		}
		if len(f.value) > math.MaxUint16 {
			return malformed("%s too long", f.name)
		}
	}
	if len(t.Nonce) < MinNonceBytes {
		return malformed("nonce shorter than %d bytes", MinNonceBytes)
	}
	if len(t.Nonce) > math.MaxUint8 {
		return malformed("nonce too long")
	}
	if t.ExpiresAt.IsZero() || t.ExpiresAt.UnixMilli() <= 0 {
		return malformed("missing expires_at")
	}
	return nil
}

// Encode 序列化凭证
func Encode(t Ticket) (string, error) {
	if err := validate(t); err != nil {
		return "", err
	}
	size := 1 + 2 + len(t.PromotionID) + 2 + len(t.AssetRef) + 2 + len(t.ClaimantID) + 1 + len(t.Nonce) + 8
	buf := make([]byte, 0, size)
	buf = append(buf, Version)
	for _, s := range []string{t.PromotionID, t.AssetRef, t.ClaimantID} {
		buf = binary.BigEndian.AppendUint16(buf, uint16(len(s)))
		buf = append(buf, s...)
	}
	buf = append(buf, byte(len(t.Nonce)))
	buf = append(buf, t.Nonce...)
	buf = binary.BigEndian.AppendUint64(buf, uint64(t.ExpiresAt.UnixMilli()))
	return encoding.EncodeToString(buf), nil
}

// Decode 解析凭证，任何失败都返回 *DecodeError
func Decode(encoded string) (Ticket, error) {
	if encoded == "" {
		return Ticket{}, malformed("empty input")
	}
	if len(encoded) > MaxEncodedLength {
		return Ticket{}, malformed("input too long")
	}
	// 标准库解码会跳过换行符，显式拒绝以保证编码唯一
	if strings.ContainsAny(encoded, "\r\n") {
		return Ticket{}, malformed("unexpected line break")
	}
	raw, err := encoding.DecodeString(encoded)
	if err != nil {
		return Ticket{}, malformed("invalid base64: %v", err)
	}

	r := reader{buf: raw}
	version, ok := r.u8()
	if !ok {
		return Ticket{}, malformed("truncated version")
	}
	if version != Version {
		return Ticket{}, malformed("unsupported version %d", version)
	}

	var t Ticket
	for _, dst := range []*string{&t.PromotionID, &t.AssetRef, &t.ClaimantID} {
		n, ok := r.u16()
		if !ok {
			return Ticket{}, malformed("truncated length")
		}
		b, ok := r.take(int(n))
		if !ok {
			return Ticket{}, malformed("truncated field")
		}
		*dst = string(b)
	}
	n, ok := r.u8()
	if !ok {
		return Ticket{}, malformed("truncated nonce length")
	}
	nonce, ok := r.take(int(n))
	if !ok {
		return Ticket{}, malformed("truncated nonce")
	}
	t.Nonce = append([]byte(nil), nonce...)
	ms, ok := r.u64()
	if !ok {
		return Ticket{}, malformed("truncated expires_at")
	}
	if ms > math.MaxInt64 {
		return Ticket{}, malformed("expires_at out of range")
	}
	t.ExpiresAt = time.UnixMilli(int64(ms)).UTC()
	if r.remaining() != 0 {
		return Ticket{}, malformed("%d trailing bytes", r.remaining())
	}
	if err := validate(t); err != nil {
		return Ticket{}, err
	}
	return t, nil
}

type reader struct {
	buf []byte
	off int
}

func (r *reader) remaining() int {
	return len(r.buf) - r.off
}

func (r *reader) take(n int) ([]byte, bool) {
	if n < 0 || r.remaining() < n {
		return nil, false
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, true
}

func (r *reader) u8() (byte, bool) {
	b, ok := r.take(1)
	if !ok {
		return 0, false
	}
	return b[0], true
}

func (r *reader) u16() (uint16, bool) {
	b, ok := r.take(2)
	if !ok {
		return 0, false
	}
	return binary.BigEndian.Uint16(b), true
}

func (r *reader) u64() (uint64, bool) {
	b, ok := r.take(8)
	if !ok {
		return 0, false
	}
	return binary.BigEndian.Uint64(b), true
}

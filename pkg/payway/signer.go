package payway

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidPrivateKey 私钥格式错误
var ErrInvalidPrivateKey = errors.New("payway: invalid private key")

// Signer RSA-SHA256 签名器
type Signer struct {
	key *rsa.PrivateKey
}

// NewSigner 解析 PEM 私钥，支持 PKCS#1 与 PKCS#8
func NewSigner(privateKeyPEM string) (*Signer, error) {
	if !strings.Contains(privateKeyPEM, "PRIVATE KEY") {
		return nil, ErrInvalidPrivateKey
	}

	block, _ := pem.Decode([]byte(normalizePEM(privateKeyPEM)))
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block", ErrInvalidPrivateKey)
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return &Signer{key: key}, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an RSA key", ErrInvalidPrivateKey)
	}
	return &Signer{key: key}, nil
}

// SigningString 按网关约定顺序拼接待签名字段
func SigningString(reqTime, merchantID, tranID, amount, details, paymentOption string) string {
	return reqTime + merchantID + tranID + amount + details + paymentOption
}

// Sign 返回 base64 编码的签名
func (s *Signer) Sign(data string) (string, error) {
	digest := sha256.Sum256([]byte(data))
	sig, err := rsa.SignPKCS1v15(rand.Reader, s.key, crypto.SHA256, digest[:])
	if err != nil {
		return "", fmt.Errorf("payway: sign: %w", err)
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

// Verify 校验签名
func (s *Signer) Verify(data, signature string) error {
	sig, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return err
	}
	digest := sha256.Sum256([]byte(data))
	return rsa.VerifyPKCS1v15(&s.key.PublicKey, crypto.SHA256, digest[:], sig)
}

// normalizePEM 还原环境变量中被压成一行的 PEM
func normalizePEM(s string) string {
	s = strings.TrimSpace(strings.ReplaceAll(s, `\n`, "\n"))
	if strings.Contains(s, "\n") {
		return s
	}

	begin := strings.Index(s, "-----BEGIN ")
	end := strings.LastIndex(s, "-----END ")
	if begin < 0 || end < begin {
		return s
	}
	headerEnd := strings.Index(s[begin+len("-----BEGIN "):end], "-----")
	if headerEnd < 0 {
		return s
	}
	headerEnd += begin + len("-----BEGIN ") + len("-----")

	header := s[begin:headerEnd]
	footer := s[end:]
	body := strings.Join(strings.Fields(s[headerEnd:end]), "")

	var b strings.Builder
	b.WriteString(header)
	b.WriteByte('\n')
	for len(body) > 64 {
		b.WriteString(body[:64])
		b.WriteByte('\n')
		body = body[64:]
	}
	if body != "" {
		b.WriteString(body)
		b.WriteByte('\n')
	}
	b.WriteString(footer)
	return b.String()
}

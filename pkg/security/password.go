package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/angelmondragon/garage-backend/pkg/config"
	"golang.org/x/crypto/argon2"
)

// ErrInvalidHash signals a stored password hash that is not a v19 argon2id PHC string.
var ErrInvalidHash = errors.New("invalid argon2id hash")

const (
	hashScheme  = "argon2id"
	hashVersion = argon2.Version
)

// ArgonParams are the cost settings encoded into every hash.
type ArgonParams struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLen     uint32
	KeyLen      uint32
}

// ParamsFromConfig clamps configured costs into a range that keeps logins responsive.
func ParamsFromConfig(cfg config.PasswordConfig) ArgonParams {
	return ArgonParams{
		Memory:      bounded(cfg.ArgonMemoryKB, 8, 512*1024),
		Time:        bounded(cfg.ArgonTime, 1, 10),
		Parallelism: uint8(bounded(cfg.ArgonParallelism, 1, 255)),
		SaltLen:     bounded(cfg.ArgonSaltLen, 8, 64),
		KeyLen:      bounded(cfg.ArgonKeyLen, 16, 64),
	}
}

type encodedHash struct {
	params ArgonParams
	salt   []byte
	key    []byte
}

func (h encodedHash) String() string {
	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		hashScheme, hashVersion,
		h.params.Memory, h.params.Time, h.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(h.salt),
		base64.RawStdEncoding.EncodeToString(h.key))
}

// HashPassword derives a fresh salted argon2id hash.
func HashPassword(password string, cfg config.PasswordConfig) (string, error) {
	if password == "" {
		return "", errors.New("password cannot be empty")
	}
	params := ParamsFromConfig(cfg)
	salt := make([]byte, params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	return encodedHash{params: params, salt: salt, key: derive(password, salt, params)}.String(), nil
}

// VerifyPassword compares in constant time. A malformed hash is an error, a mismatch is not.
func VerifyPassword(password, encoded string) (bool, error) {
	h, err := parseHash(encoded)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(h.key, derive(password, h.salt, h.params)) == 1, nil
}

// NeedsRehash reports whether a stored hash was produced with costs other than the
// configured ones. Unparseable hashes always need replacing.
func NeedsRehash(encoded string, cfg config.PasswordConfig) bool {
	h, err := parseHash(encoded)
	if err != nil {
		return true
	}
	return h.params != ParamsFromConfig(cfg)
}

func derive(password string, salt []byte, p ArgonParams) []byte {
	return argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Parallelism, p.KeyLen)
}

func parseHash(encoded string) (encodedHash, error) {
	// "", scheme, version, params, salt, key
	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[0] != "" || fields[1] != hashScheme {
		return encodedHash{}, ErrInvalidHash
	}
	if fields[2] != "v="+strconv.Itoa(hashVersion) {
		return encodedHash{}, fmt.Errorf("%w: unsupported version %q", ErrInvalidHash, fields[2])
	}

	costs := map[string]uint64{}
	for _, pair := range strings.Split(fields[3], ",") {
		name, raw, ok := strings.Cut(pair, "=")
		if !ok {
			return encodedHash{}, ErrInvalidHash
		}
		bits := 32
		if name == "p" {
			bits = 8
		}
		v, err := strconv.ParseUint(raw, 10, bits)
		if err != nil || v == 0 {
			return encodedHash{}, ErrInvalidHash
		}
		costs[name] = v
	}
	for _, name := range []string{"m", "t", "p"} {
		if _, ok := costs[name]; !ok {
			return encodedHash{}, fmt.Errorf("%w: missing %s", ErrInvalidHash, name)
		}
	}

	salt, err := base64.RawStdEncoding.DecodeString(fields[4])
	if err != nil || len(salt) == 0 {
		return encodedHash{}, ErrInvalidHash
	}
	key, err := base64.RawStdEncoding.DecodeString(fields[5])
	if err != nil || len(key) == 0 {
		return encodedHash{}, ErrInvalidHash
	}

	return encodedHash{
		params: ArgonParams{
			Memory:      uint32(costs["m"]),
			Time:        uint32(costs["t"]),
			Parallelism: uint8(costs["p"]),
			SaltLen:     uint32(len(salt)),
			KeyLen:      uint32(len(key)),
		},
		salt: salt,
		key:  key,
	}, nil
}

func bounded(value, lo, hi int) uint32 {
	switch {
	case value < lo:
		return uint32(lo)
	case value > hi:
		return uint32(hi)
	}
	return uint32(value)
}

// MinPasswordLength is the shortest password accepted at registration.
const MinPasswordLength = 8

var commonPasswords = map[string]struct{}{
	"password":   {},
	"password1":  {},
	"12345678":   {},
	"123456789":  {},
	"qwertyuiop": {},
	"iloveyou":   {},
	"letmein1":   {},
}

// CheckPasswordPolicy returns every rule the password breaks. Similarity with the username
// or email local part is rejected as well.
func CheckPasswordPolicy(password, username, email string) []string {
	var problems []string
	if len([]rune(password)) < MinPasswordLength {
		problems = append(problems, fmt.Sprintf("This password is too short. It must contain at least %d characters.", MinPasswordLength))
	}
	if _, err := strconv.Atoi(password); err == nil {
		problems = append(problems, "This password is entirely numeric.")
	}
	if _, common := commonPasswords[strings.ToLower(password)]; common {
		problems = append(problems, "This password is too common.")
	}
	lowered := strings.ToLower(password)
	for _, attr := range []string{username, localPart(email)} {
		attr = strings.ToLower(strings.TrimSpace(attr))
		if len(attr) >= 3 && (strings.Contains(lowered, attr) || strings.Contains(attr, lowered)) {
			problems = append(problems, "The password is too similar to your account details.")
			break
		}
	}
	return problems
}

func localPart(email string) string {
	if idx := strings.Index(email, "@"); idx > 0 {
		return email[:idx]
	}
	return email
}

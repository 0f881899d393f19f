package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/smallbiznis/valora-identity/internal/config"
)

const (
	defaultTime    uint32 = 3
	defaultMemory  uint32 = 64 * 1024
	defaultThreads uint8  = 2
	keyLen         uint32 = 32
	saltLen               = 16
)

var errInvalidHash = errors.New("invalid password hash")

// Hasher produces and checks argon2id hashes in PHC string format.
type Hasher struct {
	time    uint32
	memory  uint32
	threads uint8
}

// NewHasher builds a Hasher, falling back to defaults for unset params.
func NewHasher(params config.PasswordParams) *Hasher {
	h := &Hasher{time: params.Time, memory: params.Memory, threads: params.Threads}
	if h.time == 0 {
		h.time = defaultTime
	}
	if h.memory == 0 {
		h.memory = defaultMemory
	}
	if h.threads == 0 {
		h.threads = defaultThreads
	}
	return h
}

// Hash returns an argon2id hash string including parameters and salt.
func (h *Hasher) Hash(plain string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	sum := argon2.IDKey([]byte(plain), salt, h.time, h.memory, h.threads, keyLen)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.memory,
		h.time,
		h.threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(sum),
	), nil
}

// Verify checks plain against an encoded hash. The cost embedded in the hash
// wins over the Hasher's own params, so old hashes keep verifying after a
// cost change.
func (h *Hasher) Verify(plain, encoded string) (bool, error) {
	p, err := decode(encoded)
	if err != nil {
		return false, err
	}
	actual := argon2.IDKey([]byte(plain), p.salt, p.time, p.memory, p.threads, uint32(len(p.key)))
	return subtle.ConstantTimeCompare(actual, p.key) == 1, nil
}

// NeedsRehash reports whether encoded was produced with a different cost.
func (h *Hasher) NeedsRehash(encoded string) bool {
	p, err := decode(encoded)
	if err != nil {
		return true
	}
	return p.time != h.time || p.memory != h.memory || p.threads != h.threads
}

type decoded struct {
	time    uint32
	memory  uint32
	threads uint8
	salt    []byte
	key     []byte
}

func decode(encoded string) (decoded, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return decoded{}, errInvalidHash
	}

	version, err := parseUint(parts[2], "v=", 32)
	if err != nil || int(version) != argon2.Version {
		return decoded{}, errInvalidHash
	}

	params := strings.Split(parts[3], ",")
	if len(params) != 3 {
		return decoded{}, errInvalidHash
	}
	mem, err := parseUint(params[0], "m=", 32)
	if err != nil {
		return decoded{}, errInvalidHash
	}
	timeCost, err := parseUint(params[1], "t=", 32)
	if err != nil {
		return decoded{}, errInvalidHash
	}
	threads, err := parseUint(params[2], "p=", 8)
	if err != nil {
		return decoded{}, errInvalidHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return decoded{}, errInvalidHash
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return decoded{}, errInvalidHash
	}

	return decoded{
		time:    uint32(timeCost),
		memory:  uint32(mem),
		threads: uint8(threads),
		salt:    salt,
		key:     key,
	}, nil
}

func parseUint(value, prefix string, bits int) (uint64, error) {
	if !strings.HasPrefix(value, prefix) {
		return 0, errInvalidHash
	}
	return strconv.ParseUint(strings.TrimPrefix(value, prefix), 10, bits)
}

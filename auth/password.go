package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2id tuning per the OWASP password storage cheat sheet.
const (
	argonMemory      uint32 = 64 * 1024 // KiB
	argonIterations  uint32 = 3
	argonParallelism uint8  = 2
	saltLength              = 16
	digestLength     uint32 = 32
)

var errMalformedHash = errors.New("invalid hash format")

// hashParams is one decoded stored hash: the tuning parameters it was
// produced with plus the salt and digest themselves. Verification always
// replays the STORED parameters, so tuning changes only affect new hashes.
type hashParams struct {
	memory      uint32
	iterations  uint32
	parallelism uint8
	salt        []byte
	digest      []byte
}

// HashPassword derives an Argon2id digest under a fresh random salt and
// returns it in the standard self-describing encoded form.
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	digest := argon2.IDKey([]byte(password), salt, argonIterations, argonMemory, argonParallelism, digestLength)

	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		argonMemory, argonIterations, argonParallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(digest),
	)
	return encoded, nil
}

// ComparePassword reports whether the password matches the stored hash.
// The comparison is constant-time; a false result with a nil error means
// "wrong password", any error means the stored value itself is unusable.
func ComparePassword(password, encodedHash string) (bool, error) {
	stored, err := decodeHash(encodedHash)
	if err != nil {
		return false, err
	}

	candidate := argon2.IDKey([]byte(password), stored.salt,
		stored.iterations, stored.memory, stored.parallelism, uint32(len(stored.digest)))
	return subtle.ConstantTimeCompare(stored.digest, candidate) == 1, nil
}

// decodeHash splits "$argon2id$v=..$m=..,t=..,p=..$salt$digest" back into
// its parts, refusing anything that is not an Argon2id hash of the known
// version.
func decodeHash(encoded string) (hashParams, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return hashParams{}, errMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return hashParams{}, errMalformedHash
	}

	var p hashParams
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.memory, &p.iterations, &p.parallelism); err != nil {
		return hashParams{}, errMalformedHash
	}

	var err error
	if p.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return hashParams{}, errMalformedHash
	}
	if p.digest, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil {
		return hashParams{}, errMalformedHash
	}
	return p, nil
}

package crypto

import (
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"

	"github.com/turtacn/credence/internal/config"
	"github.com/turtacn/credence/pkg/constants"
	"github.com/turtacn/credence/pkg/errors"
)

// DigestAlgorithm tags the variant of a parsed Digest.
type DigestAlgorithm string

const (
	// AlgorithmArgon2id is used for every new digest.
	AlgorithmArgon2id DigestAlgorithm = "argon2id"
	// AlgorithmBcrypt is accepted for verification of legacy digests only.
	AlgorithmBcrypt DigestAlgorithm = "bcrypt"
)

// Ceilings on the work factor accepted from a stored digest, so a corrupted
// row cannot turn one verification into an unbounded computation.
const (
	argon2MaxMemory     = 2 * 1024 * 1024 // 2 GiB in KiB
	argon2MaxIterations = 64
)

// DigestParams is the argon2id work factor embedded in every digest.
type DigestParams struct {
	Memory      uint32 // KiB
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultDigestParams targets a few tens of milliseconds per verification.
func DefaultDigestParams() DigestParams {
	return DigestParams{
		Memory:      constants.Argon2Memory,
		Iterations:  constants.Argon2Iterations,
		Parallelism: constants.Argon2Parallelism,
		SaltLength:  constants.Argon2SaltLength,
		KeyLength:   constants.Argon2KeyLength,
	}
}

// DigestParamsFrom converts the configured work factor.
func DigestParamsFrom(cfg config.PasswordConfig) DigestParams {
	return DigestParams{
		Memory:      cfg.Memory,
		Iterations:  cfg.Iterations,
		Parallelism: cfg.Parallelism,
		SaltLength:  cfg.SaltLength,
		KeyLength:   cfg.KeyLength,
	}
}

// Validate rejects parameters too weak to be meaningful.
func (p DigestParams) Validate() error {
	switch {
	case p.Iterations < 1:
		return fmt.Errorf("argon2id iterations must be >= 1")
	case p.Iterations > argon2MaxIterations:
		return fmt.Errorf("argon2id iterations must be <= %d", argon2MaxIterations)
	case p.Parallelism < 1:
		return fmt.Errorf("argon2id parallelism must be >= 1")
	case p.Memory < 8*uint32(p.Parallelism):
		return fmt.Errorf("argon2id memory must be >= 8*parallelism KiB")
	case p.Memory > argon2MaxMemory:
		return fmt.Errorf("argon2id memory must be <= %d KiB", argon2MaxMemory)
	case p.SaltLength < 8:
		return fmt.Errorf("argon2id salt must be >= 8 bytes")
	case p.KeyLength < 16:
		return fmt.Errorf("argon2id key length must be >= 16 bytes")
	}
	return nil
}

// Digest is an irreversible, self-describing password credential. It only
// answers whether a candidate password is correct.
type Digest struct {
	algorithm DigestAlgorithm
	params    DigestParams
	salt      []byte
	hash      []byte
	encoded   string
}

// NewDigest hashes plaintext with a fresh random salt and the default work factor.
func NewDigest(plaintext string) (*Digest, error) {
	return NewDigestWithParams(plaintext, DefaultDigestParams())
}

// NewDigestWithParams hashes plaintext with a fresh random salt and params.
func NewDigestWithParams(plaintext string, params DigestParams) (*Digest, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	salt, err := randomBytes(int(params.SaltLength))
	if err != nil {
		return nil, err
	}
	hash := argon2.IDKey([]byte(plaintext), salt, params.Iterations, params.Memory, params.Parallelism, params.KeyLength)

	d := &Digest{
		algorithm: AlgorithmArgon2id,
		params:    params,
		salt:      salt,
		hash:      hash,
	}
	d.encoded = encodeArgon2id(params, salt, hash)
	return d, nil
}

// ParseDigest reconstructs a Digest from its stored text without re-hashing.
// Anything that is not a canonical argon2id PHC string or a bcrypt hash is
// ErrInvalidDigest.
func ParseDigest(stored string) (*Digest, error) {
	switch {
	case strings.HasPrefix(stored, "$argon2id$"):
		return parseArgon2id(stored)
	case strings.HasPrefix(stored, "$2a$"), strings.HasPrefix(stored, "$2b$"), strings.HasPrefix(stored, "$2y$"):
		if _, err := bcrypt.Cost([]byte(stored)); err != nil {
			return nil, errors.ErrInvalidDigest.WithCause(err)
		}
		return &Digest{algorithm: AlgorithmBcrypt, encoded: stored}, nil
	default:
		return nil, errors.ErrInvalidDigest.WithMessage("unknown password digest format")
	}
}

// $argon2id$v=19$m=65536,t=1,p=4$<salt>$<hash>
func parseArgon2id(stored string) (*Digest, error) {
	parts := strings.Split(stored, "$")
	if len(parts) != 6 {
		return nil, errors.ErrInvalidDigest.WithMessage("argon2id digest must have 5 fields")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return nil, errors.ErrInvalidDigest.WithMessage("unsupported argon2 version")
	}

	var p DigestParams
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Iterations, &p.Parallelism); err != nil {
		return nil, errors.ErrInvalidDigest.WithCause(err)
	}

	enc := base64.RawStdEncoding.Strict()
	salt, err := enc.DecodeString(parts[4])
	if err != nil {
		return nil, errors.ErrInvalidDigest.WithCause(err)
	}
	hash, err := enc.DecodeString(parts[5])
	if err != nil {
		return nil, errors.ErrInvalidDigest.WithCause(err)
	}
	p.SaltLength = uint32(len(salt))
	p.KeyLength = uint32(len(hash))
	if err := p.Validate(); err != nil {
		return nil, errors.ErrInvalidDigest.WithCause(err)
	}

	// Re-encoding must reproduce the input, which rejects trailing garbage
	// and non-canonical numbers that Sscanf would let through.
	if encodeArgon2id(p, salt, hash) != stored {
		return nil, errors.ErrInvalidDigest.WithMessage("non-canonical argon2id digest")
	}

	return &Digest{
		algorithm: AlgorithmArgon2id,
		params:    p,
		salt:      salt,
		hash:      hash,
		encoded:   stored,
	}, nil
}

func encodeArgon2id(p DigestParams, salt, hash []byte) string {
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.Memory, p.Iterations, p.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash))
}

// Correct reports whether candidate is the password this digest was made from.
// The comparison is constant-time; a wrong password is never an error.
func (d *Digest) Correct(candidate string) bool {
	if d == nil {
		return false
	}
	switch d.algorithm {
	case AlgorithmArgon2id:
		derived := argon2.IDKey([]byte(candidate), d.salt, d.params.Iterations, d.params.Memory, d.params.Parallelism, uint32(len(d.hash)))
		return subtle.ConstantTimeCompare(derived, d.hash) == 1
	case AlgorithmBcrypt:
		return bcrypt.CompareHashAndPassword([]byte(d.encoded), []byte(candidate)) == nil
	default:
		return false
	}
}

// Algorithm returns the variant tag.
func (d *Digest) Algorithm() DigestAlgorithm {
	return d.algorithm
}

// Params returns the argon2id work factor. It is zero for bcrypt digests.
func (d *Digest) Params() DigestParams {
	return d.params
}

// String returns the stored text form.
func (d *Digest) String() string {
	if d == nil {
		return ""
	}
	return d.encoded
}

// GoString returns the algorithm only so %#v never prints the hash.
func (d *Digest) GoString() string {
	return fmt.Sprintf("Digest(%s)", d.algorithm)
}

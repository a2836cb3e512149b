// Package signing hashes byte streams with Keccak-256 and signs the digest
// with a secp256k1 wallet key, producing the 65-byte r||s||v signatures the
// vault expects.
package signing

import (
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/vietddude/sqllogs/internal/core/domain"
)

// ChunkSize is the read size used when streaming files into the hash.
const ChunkSize = 4 * 1024

// SignatureLength is len(r) + len(s) + recovery byte.
const SignatureLength = crypto.SignatureLength

// Signer signs files and buffers. A Signer can be reused; the hash state is
// reset after every signature.
type Signer struct {
	key *ecdsa.PrivateKey

	mu      sync.Mutex
	state   crypto.KeccakState
	written int64
}

// NewSigner parses a hex private key, with or without 0x.
func NewSigner(privateKeyHex string) (*Signer, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	return &Signer{key: key, state: crypto.NewKeccakState()}, nil
}

// Address returns the lowercase hex account address without 0x.
func (s *Signer) Address() string {
	addr := crypto.PubkeyToAddress(s.key.PublicKey)
	return hex.EncodeToString(addr.Bytes())
}

// SignBytes signs data in one pass.
func (s *Signer) SignBytes(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("error with data: %w", domain.ErrEmptyInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.reset()
	s.sum(data)
	return s.sign()
}

// SignFile streams a regular file through the hash in ChunkSize reads.
func (s *Signer) SignFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("file does not exist: %s: %w", path, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("not a regular file: %s: %w", path, domain.ErrNotFound)
	}
	if info.Size() == 0 {
		return nil, fmt.Errorf("error with file: %w", domain.ErrEmptyInput)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	return s.SignReader(f)
}

// SignReader hashes r until EOF and signs the result. A reader that yields
// no bytes fails with domain.ErrUninitializedState.
func (s *Signer) SignReader(r io.Reader) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reset()
	buf := make([]byte, ChunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			s.sum(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			s.reset()
			return nil, fmt.Errorf("read: %w", err)
		}
	}
	return s.sign()
}

func (s *Signer) sum(chunk []byte) {
	// hash.Hash writes never fail
	_, _ = s.state.Write(chunk)
	s.written += int64(len(chunk))
}

func (s *Signer) reset() {
	s.state.Reset()
	s.written = 0
}

// sign finalizes the digest, resets the state and signs.
func (s *Signer) sign() ([]byte, error) {
	if s.written == 0 {
		return nil, domain.ErrUninitializedState
	}
	digest := s.state.Sum(nil)
	s.reset()

	sig, err := crypto.Sign(digest, s.key)
	if err != nil {
		return nil, fmt.Errorf("sign digest: %w", err)
	}
	sig[crypto.RecoveryIDOffset] = normalizeRecoveryID(sig[crypto.RecoveryIDOffset])
	return sig, nil
}

// normalizeRecoveryID maps the legacy 27/28 form onto 0/1. Replay-protected
// (EIP-155) values are not expected here.
func normalizeRecoveryID(v byte) byte {
	if v >= 27 {
		return v - 27
	}
	return v
}

// EncodeSignature hex-encodes a signature without a 0x prefix.
func EncodeSignature(sig []byte) string {
	return hex.EncodeToString(sig)
}

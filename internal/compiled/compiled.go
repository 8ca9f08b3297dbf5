// Package compiled loads contract code produced by the Blueprint build step.
package compiled

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xssnick/tonutils-go/tvm/cell"
)

// Contract names as produced by the build.
const (
	NFTCollection = "NftCollection"
	NFTItem       = "NftItem"
)

var (
	ErrHashMismatch = errors.New("compiled code hash mismatch")
	ErrEmptyCode    = errors.New("compiled artifact has no code")
)

// Artifact is the content of build/<Name>.compiled.json.
type Artifact struct {
	Hash       string `json:"hash"`
	HashBase64 string `json:"hashBase64"`
	Hex        string `json:"hex"`
}

// Load reads dir/<name>.compiled.json and returns its code cell.
func Load(dir, name string) (*cell.Cell, error) {
	path := filepath.Join(dir, name+".compiled.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse decodes an artifact and checks the code against the declared hash.
// Either hash field may be absent; if both are, the code is not verified.
func Parse(data []byte) (*cell.Cell, error) {
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	if a.Hex == "" {
		return nil, ErrEmptyCode
	}

	boc, err := hex.DecodeString(a.Hex)
	if err != nil {
		return nil, fmt.Errorf("decode code hex: %w", err)
	}
	code, err := cell.FromBOC(boc)
	if err != nil {
		return nil, fmt.Errorf("parse code boc: %w", err)
	}

	if err := a.verify(code.Hash()); err != nil {
		return nil, err
	}
	return code, nil
}

func (a Artifact) verify(got []byte) error {
	if a.Hash != "" {
		want, err := hex.DecodeString(a.Hash)
		if err != nil {
			return fmt.Errorf("decode hash: %w", err)
		}
		if !bytes.Equal(want, got) {
			return fmt.Errorf("%w: declared %s, computed %x", ErrHashMismatch, a.Hash, got)
		}
	}
	if a.HashBase64 != "" {
		want, err := base64.StdEncoding.DecodeString(a.HashBase64)
		if err != nil {
			return fmt.Errorf("decode hashBase64: %w", err)
		}
		if !bytes.Equal(want, got) {
			return fmt.Errorf("%w: declared %s, computed %x", ErrHashMismatch, a.HashBase64, got)
		}
	}
	return nil
}

// Encode builds the artifact of code, as the build step would write it.
func Encode(code *cell.Cell) Artifact {
	h := code.Hash()
	return Artifact{
		Hash:       hex.EncodeToString(h),
		HashBase64: base64.StdEncoding.EncodeToString(h),
		Hex:        hex.EncodeToString(code.ToBOC()),
	}
}

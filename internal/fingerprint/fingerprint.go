// Package fingerprint computes the content identity of a task instance: a
// deterministic hash over the task's identity and its resolved inputs.
package fingerprint

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"sort"

	"github.com/specialistvlad/sweepgrid/internal/task"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// ErrUnknownValue is returned when an input value is not yet known.
var ErrUnknownValue = errors.New("input value is not wholly known")

// Fingerprint is the hex-encoded SHA-256 identity of a task instance.
type Fingerprint string

func (f Fingerprint) String() string { return string(f) }

// Short returns the first 12 characters, for log lines and directory names
// where the full hash is noise.
func (f Fingerprint) Short() string {
	if len(f) <= 12 {
		return string(f)
	}
	return string(f[:12])
}

// Compute hashes the identity and inputs. Inputs are visited in sorted name
// order and every field is length-prefixed, so two logically equal input maps
// always hash equal regardless of construction order.
func Compute(id task.Identity, inputs map[string]cty.Value) (Fingerprint, error) {
	h := sha256.New()
	writeField(h, []byte(id.Name))
	writeField(h, []byte(id.Version))

	names := make([]string, 0, len(inputs))
	for name := range inputs {
		names = append(names, name)
	}
	sort.Strings(names)

	var lenBuf [8]byte
	binary.BigEndian.PutUint64(lenBuf[:], uint64(len(names)))
	h.Write(lenBuf[:])

	for _, name := range names {
		v, _ := inputs[name].UnmarkDeep()
		if !v.IsWhollyKnown() {
			return "", fmt.Errorf("%w: %q", ErrUnknownValue, name)
		}
		ty := v.Type()
		tyJSON, err := ctyjson.MarshalType(ty)
		if err != nil {
			return "", fmt.Errorf("fingerprint input %q type: %w", name, err)
		}
		valJSON, err := ctyjson.Marshal(v, ty)
		if err != nil {
			return "", fmt.Errorf("fingerprint input %q value: %w", name, err)
		}
		writeField(h, []byte(name))
		writeField(h, tyJSON)
		writeField(h, valJSON)
	}

	return Fingerprint(hex.EncodeToString(h.Sum(nil))), nil
}

func writeField(h hash.Hash, data []byte) {
	var lenBuf [8]byte
	binary.BigEndian.PutUint64(lenBuf[:], uint64(len(data)))
	h.Write(lenBuf[:])
	h.Write(data)
}

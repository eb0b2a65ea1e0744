package spec

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/yesoreyeram/dagflow/pkg/types"
)

// fileChunkSize is the read buffer used when hashing file-valued fields;
// large files are hashed incrementally rather than loaded whole.
const fileChunkSize = 64 * 1024

// HashField computes the hash of a single field value per its declared
// kind: scalars hash their string form, files hash their contents in
// fixed-size chunks, sequences hash the ordered concatenation of their
// elements' hashes.
func HashField(kind types.FieldKind, value interface{}) (string, error) {
	switch kind {
	case types.FieldScalar, types.FieldTemplateString:
		return hashString(fmt.Sprintf("%v", value)), nil

	case types.FieldFile:
		path, ok := value.(string)
		if !ok {
			return "", fmt.Errorf("%w: file field value is %T, want string path", ErrUnhashableField, value)
		}
		return hashFile(path)

	case types.FieldSequenceScalar:
		items, err := toSlice(value)
		if err != nil {
			return "", err
		}
		h := sha256.New()
		for _, item := range items {
			elemHash := hashString(fmt.Sprintf("%v", item))
			io.WriteString(h, elemHash)
		}
		return hex.EncodeToString(h.Sum(nil)), nil

	case types.FieldSequenceFile:
		items, err := toSlice(value)
		if err != nil {
			return "", err
		}
		h := sha256.New()
		for _, item := range items {
			path, ok := item.(string)
			if !ok {
				return "", fmt.Errorf("%w: sequence-of-file element is %T, want string path", ErrUnhashableField, item)
			}
			elemHash, err := hashFile(path)
			if err != nil {
				return "", err
			}
			io.WriteString(h, elemHash)
		}
		return hex.EncodeToString(h.Sum(nil)), nil

	default:
		return "", fmt.Errorf("%w: %s", ErrUnhashableField, kind)
	}
}

func hashString(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrFileUnreadable, path, err)
	}
	defer f.Close()

	h := sha256.New()
	buf := make([]byte, fileChunkSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrFileUnreadable, path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func toSlice(value interface{}) ([]interface{}, error) {
	switch v := value.(type) {
	case []interface{}:
		return v, nil
	case []string:
		out := make([]interface{}, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: sequence field value is %T", ErrUnhashableField, value)
	}
}

// InputHash computes the hash of a bound input record: the hash of the
// ordered sequence of (field-name, field-hash) pairs in declaration order,
// concatenated with the task class name and the environment fingerprint.
func InputHash(className string, envFingerprint string, s types.Spec, record types.Record) (string, error) {
	h := sha256.New()
	io.WriteString(h, className)
	io.WriteString(h, "\x00")
	io.WriteString(h, envFingerprint)

	for _, f := range s.Fields {
		if f.OutputFileTemplate != "" {
			// Derived entirely from other bound fields via its template;
			// hashing it would add nothing and it is typically unbound.
			continue
		}
		value, ok := record[f.Name]
		if !ok {
			value = f.Default
		}
		fieldHash, err := HashField(f.Kind, value)
		if err != nil {
			return "", err
		}
		io.WriteString(h, "\x00")
		io.WriteString(h, f.Name)
		io.WriteString(h, "\x00")
		io.WriteString(h, fieldHash)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Checksum composes the node checksum `"{class}_{input_hash}"` identifying
// a cached element.
func Checksum(className, inputHash string) string {
	return className + "_" + inputHash
}

// EnvFingerprint produces a stable, sorted fingerprint of an environment
// map so that two runs with identical env contribute identical hashes
// regardless of map iteration order.
func EnvFingerprint(env map[string]string) string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := sha256.New()
	for _, k := range keys {
		io.WriteString(h, k)
		io.WriteString(h, "=")
		io.WriteString(h, env[k])
		io.WriteString(h, "\x00")
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Package eip712 builds and hashes the typed-structured-data payload the
// chain accepts in place of a native Cosmos signature. The hashing
// algorithm here must be bit-identical to the chain's own TypeScript and
// Rust clients: every byte-ordering and type-encoding choice below is a
// deliberate match to that reference, not a generic EIP-712 library
// default.
package eip712

import (
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
)

// Field is one member of a typed-data struct definition.
type Field struct {
	Name string
	Type string
}

// Schema maps a type name to its ordered field list.
type Schema map[string][]Field

// TxSchema is the fixed Cosmos-EIP-712 type schema this signer uses for
// every contract-execute message: EIP712Domain, Tx, Fee, Coin, Msg,
// MsgValue. It never varies per message; only the Message payload does.
var TxSchema = Schema{
	"EIP712Domain": {
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
		{Name: "chainId", Type: "uint256"},
		{Name: "verifyingContract", Type: "string"},
		{Name: "salt", Type: "string"},
	},
	"Tx": {
		{Name: "account_number", Type: "string"},
		{Name: "chain_id", Type: "string"},
		{Name: "fee", Type: "Fee"},
		{Name: "memo", Type: "string"},
		{Name: "msgs", Type: "Msg[]"},
		{Name: "sequence", Type: "string"},
		{Name: "timeout_height", Type: "string"},
	},
	"Fee": {
		{Name: "amount", Type: "Coin[]"},
		{Name: "gas", Type: "string"},
	},
	"Coin": {
		{Name: "denom", Type: "string"},
		{Name: "amount", Type: "string"},
	},
	"Msg": {
		{Name: "type", Type: "string"},
		{Name: "value", Type: "MsgValue"},
	},
	"MsgValue": {
		{Name: "sender", Type: "string"},
		{Name: "contract", Type: "string"},
		{Name: "msg", Type: "string"},
		{Name: "funds", Type: "string"},
	},
}

// TypedData is the structure handed to Hash: a schema, the struct it is
// rooted at, and the domain/message payloads keyed by field name.
type TypedData struct {
	Types       Schema
	PrimaryType string
	Domain      map[string]any
	Message     map[string]any
}

// Hash computes digest = keccak256(0x1901 || hashStruct(domain) ||
// hashStruct(message)), the EIP-712 digest that gets signed.
func Hash(td TypedData) ([32]byte, error) {
	domainSeparator, err := hashStruct(td.Types, "EIP712Domain", td.Domain)
	if err != nil {
		return [32]byte{}, fmt.Errorf("eip712: hash domain: %w", err)
	}
	messageHash, err := hashStruct(td.Types, td.PrimaryType, td.Message)
	if err != nil {
		return [32]byte{}, fmt.Errorf("eip712: hash message: %w", err)
	}

	buf := make([]byte, 0, 2+32+32)
	buf = append(buf, 0x19, 0x01)
	buf = append(buf, domainSeparator[:]...)
	buf = append(buf, messageHash[:]...)

	var out [32]byte
	copy(out[:], crypto.Keccak256(buf))
	return out, nil
}

// hashStruct computes keccak256(typeHash || encode(field_1) ||
// ... || encode(field_n)) for the given type and data.
func hashStruct(types Schema, typeName string, data map[string]any) ([32]byte, error) {
	fields, ok := types[typeName]
	if !ok {
		return [32]byte{}, fmt.Errorf("type %q not found", typeName)
	}

	typeHash, err := hashType(types, typeName)
	if err != nil {
		return [32]byte{}, err
	}

	encoded := make([]byte, 0, 32*(len(fields)+1))
	encoded = append(encoded, typeHash[:]...)

	for _, f := range fields {
		val, present := data[f.Name]
		var enc [32]byte
		if present {
			enc, err = encodeValue(types, f.Type, val)
			if err != nil {
				return [32]byte{}, fmt.Errorf("field %q: %w", f.Name, err)
			}
		}
		// Missing fields encode as 32 zero bytes.
		encoded = append(encoded, enc[:]...)
	}

	var out [32]byte
	copy(out[:], crypto.Keccak256(encoded))
	return out, nil
}

// hashType hashes the canonical EIP-712 type string for typeName.
func hashType(types Schema, typeName string) ([32]byte, error) {
	encoded, err := encodeType(types, typeName)
	if err != nil {
		return [32]byte{}, err
	}
	var out [32]byte
	copy(out[:], crypto.Keccak256([]byte(encoded)))
	return out, nil
}

// encodeType builds the canonical "Type1(fields...)Type2(fields...)"
// string: typeName's own definition first, then every type it
// transitively references, sorted alphabetically.
func encodeType(types Schema, typeName string) (string, error) {
	referenced := map[string]bool{}
	if err := collectReferencedTypes(types, typeName, referenced); err != nil {
		return "", err
	}

	others := make([]string, 0, len(referenced))
	for t := range referenced {
		if t != typeName {
			others = append(others, t)
		}
	}
	sort.Strings(others)
	ordered := append([]string{typeName}, others...)

	var sb strings.Builder
	for _, t := range ordered {
		fields, ok := types[t]
		if !ok {
			return "", fmt.Errorf("type %q not found", t)
		}
		sb.WriteString(t)
		sb.WriteByte('(')
		for i, f := range fields {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(f.Type)
			sb.WriteByte(' ')
			sb.WriteString(f.Name)
		}
		sb.WriteByte(')')
	}
	return sb.String(), nil
}

func collectReferencedTypes(types Schema, typeName string, collected map[string]bool) error {
	if collected[typeName] {
		return nil
	}
	fields, ok := types[typeName]
	if !ok {
		return nil // primitive type, nothing to collect
	}
	collected[typeName] = true

	for _, f := range fields {
		base := strings.TrimSuffix(f.Type, "[]")
		if _, isCustom := types[base]; isCustom {
			if err := collectReferencedTypes(types, base, collected); err != nil {
				return err
			}
		}
	}
	return nil
}

// encodeValue encodes a single field value per its declared type.
func encodeValue(types Schema, fieldType string, value any) ([32]byte, error) {
	if base, ok := strings.CutSuffix(fieldType, "[]"); ok {
		arr, ok := value.([]any)
		if !ok {
			return [32]byte{}, fmt.Errorf("expected array for type %q, got %T", fieldType, value)
		}
		buf := make([]byte, 0, 32*len(arr))
		for _, item := range arr {
			enc, err := encodeValue(types, base, item)
			if err != nil {
				return [32]byte{}, err
			}
			buf = append(buf, enc[:]...)
		}
		var out [32]byte
		copy(out[:], crypto.Keccak256(buf))
		return out, nil
	}

	switch fieldType {
	case "string":
		s, ok := value.(string)
		if !ok {
			return [32]byte{}, fmt.Errorf("expected string, got %T", value)
		}
		var out [32]byte
		copy(out[:], crypto.Keccak256([]byte(s)))
		return out, nil

	case "uint256":
		return encodeUint256(value)

	default:
		if _, isCustom := types[fieldType]; isCustom {
			m, ok := value.(map[string]any)
			if !ok {
				return [32]byte{}, fmt.Errorf("expected object for type %q, got %T", fieldType, value)
			}
			return hashStruct(types, fieldType, m)
		}
		// Unknown primitive: fall back to string encoding, matching the
		// reference implementation's default case.
		s, ok := value.(string)
		if !ok {
			return [32]byte{}, fmt.Errorf("expected string fallback for type %q, got %T", fieldType, value)
		}
		var out [32]byte
		copy(out[:], crypto.Keccak256([]byte(s)))
		return out, nil
	}
}

// encodeUint256 left-pads value into a 32-byte big-endian integer.
// Accepts a decimal string, a "0x"-prefixed hex string, or a uint64 -
// the three shapes this signer ever actually produces.
func encodeUint256(value any) ([32]byte, error) {
	var n *big.Int
	switch v := value.(type) {
	case string:
		n = new(big.Int)
		var ok bool
		if strings.HasPrefix(v, "0x") {
			_, ok = n.SetString(v[2:], 16)
		} else {
			_, ok = n.SetString(v, 10)
		}
		if !ok {
			return [32]byte{}, fmt.Errorf("invalid uint256 string %q", v)
		}
	case uint64:
		n = new(big.Int).SetUint64(v)
	default:
		return [32]byte{}, fmt.Errorf("unsupported uint256 value type %T", value)
	}

	b := n.Bytes()
	if len(b) > 32 {
		return [32]byte{}, fmt.Errorf("uint256 value overflows 32 bytes")
	}
	var out [32]byte
	copy(out[32-len(b):], b)
	return out, nil
}

package dfapi

import (
	"github.com/ipld/go-ipld-prime"
	"github.com/ipld/go-ipld-prime/codec/json"
)

// MarshalStringList serializes a list of strings as a JSON array.
// Used for embedding a table's dimensions in a catalog index cell.
//
// Errors:
//
//    - dataforge-error-serialization -- when serializing fails
func MarshalStringList(v []string) (string, error) {
	if v == nil {
		v = []string{}
	}
	serial, err := ipld.Marshal(json.Encode, &v, TypeSystem.TypeByName("List__String"))
	if err != nil {
		return "", ErrorSerialization("failed to serialize string list", err)
	}
	return string(serial), nil
}

// UnmarshalStringList parses a JSON array of strings.
//
// Errors:
//
//    - dataforge-error-serialization -- when parsing fails
func UnmarshalStringList(serial string) ([]string, error) {
	var v []string
	_, err := ipld.Unmarshal([]byte(serial), json.Decode, &v, TypeSystem.TypeByName("List__String"))
	if err != nil {
		return nil, ErrorSerialization("failed to parse string list", err)
	}
	return v, nil
}

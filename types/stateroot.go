package types

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// StateRootLen is the length of a state root in bytes.
const StateRootLen = 32

// StateRoot is the 32-byte digest summarizing an execution environment's state.
type StateRoot [StateRootLen]byte

// ZeroStateRoot is the all-zero state root used for fresh execution environments.
var ZeroStateRoot = StateRoot{}

func (sr StateRoot) String() string {
	return hex.EncodeToString(sr[:])
}

// Bytes returns the state root as a byte slice.
func (sr StateRoot) Bytes() []byte {
	return sr[:]
}

// MarshalJSON implements the json.Marshaler interface for StateRoot.
// It converts the state root to a hex-encoded string.
func (sr StateRoot) MarshalJSON() ([]byte, error) {
	return json.Marshal(hex.EncodeToString(sr[:]))
}

// UnmarshalJSON implements the json.Unmarshaler interface for StateRoot.
func (sr *StateRoot) UnmarshalJSON(input []byte) error {
	var hexString string
	if err := json.Unmarshal(input, &hexString); err != nil {
		return err
	}
	parsed, err := ParseStateRoot(hexString)
	if err != nil {
		return err
	}
	*sr = parsed
	return nil
}

// MarshalYAML implements the yaml.Marshaler interface for StateRoot.
func (sr StateRoot) MarshalYAML() (interface{}, error) {
	return hex.EncodeToString(sr[:]), nil
}

// UnmarshalYAML implements the yaml.Unmarshaler interface for StateRoot.
func (sr *StateRoot) UnmarshalYAML(value *yaml.Node) error {
	var hexString string
	if err := value.Decode(&hexString); err != nil {
		return err
	}
	parsed, err := ParseStateRoot(hexString)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*sr = parsed
	return nil
}

// ParseStateRoot decodes a hex string, with or without a 0x prefix, into a StateRoot.
func ParseStateRoot(input string) (StateRoot, error) {
	data, err := DecodeHex(input)
	if err != nil {
		return StateRoot{}, err
	}
	return NewStateRoot(data)
}

// NewStateRoot creates a new StateRoot from a byte slice.
// Returns an error if the slice length is not StateRootLen.
func NewStateRoot(b []byte) (StateRoot, error) {
	if len(b) != StateRootLen {
		return StateRoot{}, errors.New("got wrong number of bytes for state root")
	}
	var sr StateRoot
	copy(sr[:], b)
	return sr, nil
}

// ForceNewStateRoot creates a StateRoot instance from a hex string.
// It panics in case the input is invalid.
func ForceNewStateRoot(input string) StateRoot {
	sr, err := ParseStateRoot(input)
	if err != nil {
		panic(err)
	}
	return sr
}

// DecodeHex decodes a hex string with an optional 0x prefix.
func DecodeHex(input string) ([]byte, error) {
	s := input
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	data, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("could not decode hex bytes: %w", err)
	}
	return data, nil
}

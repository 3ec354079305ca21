// Package settings is the local settings store (spec §1, §4.6 "settings"
// source entry): an address book and a known-contract registry loaded
// from an on-disk YAML/JSON file via viper. It is an external
// collaborator — the verifier takes a loaded store through the narrow
// ContractRegistry interface (verifier.ContractRegistry) it implements,
// and uses Empty as its default token-info lookup.
package settings

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/safelens/safelens/errors"
)

// Store holds a named address book (owner/token nicknames), a registry of
// known contract addresses consulted for the DelegateCall-target warning,
// and a local token-decimals table used to format amounts in interpreter
// summaries without any network or on-chain lookup.
type Store struct {
	addressBook    map[string]string // lowercase address -> nickname
	knownContracts []string
	tokenDecimals  map[string]int // lowercase address -> decimals
}

// Load reads a settings file (YAML or JSON, auto-detected by viper from
// its extension) at path, per the teacher's viper.New() + Unmarshal
// pattern (0gfoundation-0g-sandbox-billing/internal/config/config.go).
func Load(path string) (*Store, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.NewIOError(path, err)
	}

	var raw struct {
		AddressBook    map[string]string `mapstructure:"addressBook"`
		KnownContracts []string          `mapstructure:"knownContracts"`
		TokenDecimals  map[string]int    `mapstructure:"tokenDecimals"`
	}
	if err := v.Unmarshal(&raw); err != nil {
		return nil, errors.New(errors.CodeIO, "malformed settings file: "+path, err)
	}

	book := make(map[string]string, len(raw.AddressBook))
	for addr, name := range raw.AddressBook {
		book[strings.ToLower(strings.TrimPrefix(addr, "0x"))] = name
	}
	decimals := make(map[string]int, len(raw.TokenDecimals))
	for addr, d := range raw.TokenDecimals {
		decimals[strings.ToLower(strings.TrimPrefix(addr, "0x"))] = d
	}

	return &Store{addressBook: book, knownContracts: raw.KnownContracts, tokenDecimals: decimals}, nil
}

// Empty returns a Store with no entries. The verifier driver uses it as
// the interpreter registry's token-info lookup when no settings store is
// supplied, so Decimals and Nickname always have a non-nil,
// harmlessly-empty receiver.
func Empty() *Store {
	return &Store{addressBook: map[string]string{}, tokenDecimals: map[string]int{}}
}

// KnownTargets implements verifier.ContractRegistry.
func (s *Store) KnownTargets() []string {
	if s == nil {
		return nil
	}
	return s.knownContracts
}

// Nickname returns the address book label for addr, if any.
func (s *Store) Nickname(addr string) (string, bool) {
	if s == nil {
		return "", false
	}
	name, ok := s.addressBook[strings.ToLower(strings.TrimPrefix(addr, "0x"))]
	return name, ok
}

// Decimals returns the configured decimal count for the token at addr, if
// any. Used to format raw wei amounts as human-readable decimal values in
// interpreter summaries (spec §4.5), never to price or value a token.
func (s *Store) Decimals(addr string) (int, bool) {
	if s == nil {
		return 0, false
	}
	d, ok := s.tokenDecimals[strings.ToLower(strings.TrimPrefix(addr, "0x"))]
	return d, ok
}

/*
Copyright (C) 2026  nostrbase contributors

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

// Package validate implements the record validator (spec §4.2, C2):
// schema checks, content-hash recomputation, and signature verification
// against a configurable policy.
package validate

import (
	"github.com/decred/dcrd/dcrec/secp256k1/v4/schnorr"

	"github.com/nostrbase/archiver/record"
)

// Category is one failure taxonomy entry (spec §4.2, "Failure taxonomy").
type Category string

const (
	InvalidHexShape    Category = "invalid_hex_shape"
	KindOutOfRange     Category = "kind_out_of_range"
	InvalidTagValue    Category = "invalid_tag_value"
	InvalidID          Category = "invalid_id"
	InvalidSignature   Category = "invalid_signature"
	HashComputationErr Category = "hash_computation_error"
	NonrepresentableTS Category = "nonrepresentable_timestamp"
)

// Policy enumerates the recognized validation options (spec §4.2).
type Policy struct {
	CheckHexShape bool
	CheckKindRange bool
	CheckTagShape bool
	CheckID       bool
	CheckSig      bool
	FailFast      bool
}

// DefaultPolicy matches the config surface's documented defaults
// (spec §6): validate_id=on, validate_sig=on, and the cheap structural
// checks always enabled.
func DefaultPolicy() Policy {
	return Policy{
		CheckHexShape:  true,
		CheckKindRange: true,
		CheckTagShape:  true,
		CheckID:        true,
		CheckSig:       true,
	}
}

// Error reports every category a record failed, in the cheapest-first
// check order (spec §4.2, "Guarantees").
type Error struct {
	Categories []Category
}

func (e *Error) Error() string {
	s := "validate: failed checks:"
	for _, c := range e.Categories {
		s += " " + string(c)
	}
	return s
}

func (e *Error) Has(c Category) bool {
	for _, x := range e.Categories {
		if x == c {
			return true
		}
	}
	return false
}

// Validate runs the enabled checks against r in cheapest-first order:
// shape -> range -> tag shape -> timestamp -> hash -> signature. The
// content hash is computed at most once, for the id check; the Schnorr
// signature is verified over the record's id field.
func Validate(r *record.Record, p Policy) error {
	var cats []Category
	fail := func(c Category) bool {
		cats = append(cats, c)
		return p.FailFast
	}

	if p.CheckHexShape {
		if !r.HexShapeOK() {
			if fail(InvalidHexShape) {
				return &Error{cats}
			}
		}
	}

	if p.CheckKindRange {
		if _, overflowed := r.OverflowKind(); overflowed {
			if fail(KindOutOfRange) {
				return &Error{cats}
			}
		}
	}

	if p.CheckTagShape {
		for _, tag := range r.Tags {
			if len(tag) == 0 {
				if fail(InvalidTagValue) {
					return &Error{cats}
				}
				break
			}
		}
	}

	if !record.Representable(r.CreatedAt) {
		if fail(NonrepresentableTS) {
			return &Error{cats}
		}
	}

	var hash [record.IDLen]byte
	var hashComputed bool
	computeHash := func() [record.IDLen]byte {
		if !hashComputed {
			hash = record.CanonicalHash(r.Author, r.CreatedAt, r.Kind, r.Tags, r.Content)
			hashComputed = true
		}
		return hash
	}

	if p.CheckID {
		h := computeHash()
		if h != r.ID {
			if fail(InvalidID) {
				return &Error{cats}
			}
		}
	}

	if p.CheckSig {
		if !verifySignature(r.Author, r.ID, r.Sig) {
			if fail(InvalidSignature) {
				return &Error{cats}
			}
		}
	}

	if len(cats) > 0 {
		return &Error{cats}
	}
	return nil
}

// verifySignature checks sig as a BIP-340 Schnorr signature over hash
// (the record's id) under the x-only public key author.
func verifySignature(author [record.AuthorLen]byte, hash [record.IDLen]byte, sig [record.SigLen]byte) bool {
	pubKey, err := schnorr.ParsePubKey(author[:])
	if err != nil {
		return false
	}
	signature, err := schnorr.ParseSignature(sig[:])
	if err != nil {
		return false
	}
	return signature.Verify(hash[:], pubKey)
}

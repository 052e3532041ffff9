package validate

import (
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/schnorr"

	"github.com/nostrbase/archiver/record"
)

func signedRecord(t *testing.T) *record.Record {
	t.Helper()
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("GeneratePrivateKey: %v", err)
	}
	var author [record.AuthorLen]byte
	copy(author[:], priv.PubKey().SerializeCompressed()[1:])

	createdAt := int64(1700000000)
	kind := uint16(1)
	tags := [][]string{{"e", "deadbeef"}}
	content := "hello nostr"

	hash := record.CanonicalHash(author, createdAt, kind, tags, content)
	sig, err := schnorr.Sign(priv, hash[:])
	if err != nil {
		t.Fatalf("schnorr.Sign: %v", err)
	}

	r := &record.Record{
		ID:        hash,
		Author:    author,
		CreatedAt: createdAt,
		Kind:      kind,
		Tags:      tags,
		Content:   content,
	}
	copy(r.Sig[:], sig.Serialize())
	r.SetHexShapeOK(true)
	return r
}

func TestValidateAcceptsWellFormedSignedRecord(t *testing.T) {
	r := signedRecord(t)
	if err := Validate(r, DefaultPolicy()); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateRejectsTamperedID(t *testing.T) {
	r := signedRecord(t)
	r.ID[0] ^= 0xff

	err := Validate(r, DefaultPolicy())
	ve, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T", err)
	}
	if !ve.Has(InvalidID) {
		t.Fatalf("expected invalid_id in %v", ve.Categories)
	}
	// a mismatched id also fails the Schnorr verification, which is done
	// over the id field, and the tampered id is not what the key signed.
	if !ve.Has(InvalidSignature) {
		t.Fatalf("expected invalid_signature in %v", ve.Categories)
	}
}

func TestValidateRejectsTamperedSignature(t *testing.T) {
	r := signedRecord(t)
	r.Sig[0] ^= 0xff

	err := Validate(r, DefaultPolicy())
	ve, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T", err)
	}
	if !ve.Has(InvalidSignature) {
		t.Fatalf("expected invalid_signature in %v", ve.Categories)
	}
	if ve.Has(InvalidID) {
		t.Fatalf("id should still be valid: %v", ve.Categories)
	}
}

func TestValidateHexShape(t *testing.T) {
	r := signedRecord(t)
	r.SetHexShapeOK(false)

	err := Validate(r, DefaultPolicy())
	ve, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T", err)
	}
	if !ve.Has(InvalidHexShape) {
		t.Fatalf("expected invalid_hex_shape in %v", ve.Categories)
	}
}

func TestValidateSkipsDisabledChecks(t *testing.T) {
	r := signedRecord(t)
	r.Sig[0] ^= 0xff

	p := DefaultPolicy()
	p.CheckSig = false
	if err := Validate(r, p); err != nil {
		t.Fatalf("Validate with CheckSig=false should ignore a bad signature: %v", err)
	}
}

func TestValidateNonrepresentableTimestamp(t *testing.T) {
	r := signedRecord(t)
	r.CreatedAt = 1 << 48

	err := Validate(r, DefaultPolicy())
	ve, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T", err)
	}
	if !ve.Has(NonrepresentableTS) {
		t.Fatalf("expected nonrepresentable_timestamp in %v", ve.Categories)
	}
}

// Package ckc assembles and encrypts the Content Key Context returned to
// the client — component H of the pipeline.
//
// TLLV ordering, the key-duration/offline-key decision table, and the
// final AES-CBC wrap are grounded on base_ckc_parse.rs's
// populateServerCtxResult/genCKCWithCKAndIV and on §4.H of the
// specification.
package ckc

import (
	"crypto/rand"
	"fmt"

	"github.com/barnettlynn/fpsckc/internal/bytesutil"
	"github.com/barnettlynn/fpsckc/internal/envelope"
	"github.com/barnettlynn/fpsckc/internal/fpserrors"
	"github.com/barnettlynn/fpsckc/internal/spctag"
	"github.com/barnettlynn/fpsckc/internal/tllv"
)

// KeyDuration carries the lease/rental/playback durations and the
// derived key type, exactly as populateServerCtxResult computes them.
type KeyDuration struct {
	LeaseDuration    uint32
	RentalDuration   uint32
	PlaybackDuration uint32
	KeyType          spctag.KeyDurationType
}

// Data is the transient CKC container's data (see spec §3 CKC
// container).
type Data struct {
	CK, IV []byte
	R1     []byte

	KeyDuration KeyDuration

	HDCPTypeTLLVValue     spctag.HDCPRequirement
	ContentKeyTLLVTag     uint64
	ContentKeyTLLVPayload []byte
	RequiredSecurityLevel spctag.SecurityLevel

	// ReturnRequest is echoed verbatim from the SPC.
	ReturnRequest []byte

	// SupportsOfflineKeyTLLV / SupportsOfflineKeyV2 come from the
	// client's capabilities bitfield and pick the offline-key TLLV
	// version per §4.H's decision table.
	SupportsOfflineKeyTLLV bool
	SupportsOfflineKeyV2   bool

	// StreamID / TitleID feed the offline-key V2 TLLV; TitleID is
	// padded/truncated to 16 bytes as FPS_MAX_TITLE_ID_LENGTH.
	StreamID []byte
	TitleID  []byte

	// ContentID defaults to a zero-filled 16-byte value (the "default
	// hook" §4.H mentions) when left empty by the caller.
	ContentID []byte

	// ReturnCKC is false on the check-in path: the CKC field is left
	// empty even though every other result field is populated.
	ReturnCKC bool
}

const securityLevelTLLVVersion uint32 = 1
const offlineKeyTLLVVersion uint32 = 1
const offlineKeyTLLVVersion2 uint32 = 2

// Build assembles the CKC TLLV sequence in the order §4.H specifies and
// returns the encrypted container: a 4-byte version, 16-byte IV, then
// the AES-CBC ciphertext of the concatenated TLLVs.
func Build(version envelope.Version, arKey []byte, d Data) ([]byte, error) {
	if !d.ReturnCKC {
		return nil, nil
	}

	var body []byte

	rr, err := tllv.Build(uint64(spctag.TagReturnRequest), d.ReturnRequest, 0)
	if err != nil {
		return nil, fpserrors.Wrap(fpserrors.CodeInternalErr, err)
	}
	body = append(body, rr...)

	ckPayload, err := tllv.Build(d.ContentKeyTLLVTag, d.ContentKeyTLLVPayload, 0)
	if err != nil {
		return nil, fpserrors.Wrap(fpserrors.CodeInternalErr, err)
	}
	body = append(body, ckPayload...)

	r1, err := tllv.Build(uint64(spctag.TagR1), d.R1, 0)
	if err != nil {
		return nil, fpserrors.Wrap(fpserrors.CodeInternalErr, err)
	}
	body = append(body, r1...)

	durOrOffline, err := buildKeyDurationOrOfflineKey(d)
	if err != nil {
		return nil, err
	}
	body = append(body, durOrOffline...)

	hdcp, err := tllv.Build(uint64(spctag.TagHDCPInformation), bytesutil.PutUint64(nil, uint64(d.HDCPTypeTLLVValue)), 0)
	if err != nil {
		return nil, fpserrors.Wrap(fpserrors.CodeInternalErr, err)
	}
	body = append(body, hdcp...)

	// The final record absorbs whatever padding the whole body needs to
	// land on an AES block boundary, so every padding byte stays inside
	// a TLLV's own padding region instead of trailing the last record
	// as bytes no parser would recognize.
	secLevel := bytesutil.PutUint32(nil, securityLevelTLLVVersion)
	secLevel = bytesutil.PutUint64(secLevel, uint64(d.RequiredSecurityLevel))
	unpaddedRecordLen := 16 + len(secLevel)
	pad := (16 - (len(body)+unpaddedRecordLen)%16) % 16
	secLevelTLLV, err := tllv.Build(uint64(spctag.TagSecurityLevel), secLevel, pad)
	if err != nil {
		return nil, fpserrors.Wrap(fpserrors.CodeInternalErr, err)
	}
	body = append(body, secLevelTLLV...)

	iv := make([]byte, 16)
	if _, err := rand.Read(iv); err != nil {
		return nil, fpserrors.Wrap(fpserrors.CodeInternalErr, fmt.Errorf("generate CKC IV: %w", err))
	}
	cipherText, err := envelope.EncryptCBC(arKey, iv, body)
	if err != nil {
		return nil, err
	}

	out := bytesutil.PutUint32(nil, uint32(version))
	out = append(out, iv...)
	out = append(out, cipherText...)
	return out, nil
}

// buildKeyDurationOrOfflineKey implements §4.H's decision table.
func buildKeyDurationOrOfflineKey(d Data) ([]byte, error) {
	isPersistence := d.KeyDuration.KeyType == spctag.KeyDurationPersistence ||
		d.KeyDuration.KeyType == spctag.KeyDurationPersistenceAndDuration

	if d.SupportsOfflineKeyTLLV && isPersistence {
		return buildOfflineKeyTLLV(d)
	}
	return buildKeyDurationTLLV(d)
}

func buildKeyDurationTLLV(d Data) ([]byte, error) {
	v := bytesutil.PutUint32(nil, d.KeyDuration.LeaseDuration)
	v = bytesutil.PutUint32(v, d.KeyDuration.RentalDuration)
	v = bytesutil.PutUint32(v, d.KeyDuration.PlaybackDuration)
	v = bytesutil.PutUint32(v, uint32(d.KeyDuration.KeyType))
	v = bytesutil.PutUint32(v, spctag.KeyDurationReservedFieldValue)
	return tllv.Build(uint64(spctag.TagKeyDuration), v, 0)
}

func buildOfflineKeyTLLV(d Data) ([]byte, error) {
	contentID := d.ContentID
	if len(contentID) == 0 {
		contentID = make([]byte, spctag.OfflineContentIDLength)
	}

	if d.SupportsOfflineKeyV2 {
		v := bytesutil.PutUint32(nil, offlineKeyTLLVVersion2)
		v = bytesutil.PutUint32(v, uint32(d.KeyDuration.KeyType))
		v = bytesutil.PutUint32(v, d.KeyDuration.LeaseDuration)
		v = bytesutil.PutUint32(v, d.KeyDuration.RentalDuration)
		v = bytesutil.PutUint32(v, d.KeyDuration.PlaybackDuration)
		v = append(v, contentID...)
		v = append(v, padOrTruncate(d.StreamID, spctag.MaxStreamIDLength)...)
		v = append(v, padOrTruncate(d.TitleID, spctag.MaxTitleIDLength)...)
		return tllv.Build(uint64(spctag.TagOfflineKey), v, 0)
	}

	v := bytesutil.PutUint32(nil, offlineKeyTLLVVersion)
	v = bytesutil.PutUint32(v, uint32(d.KeyDuration.KeyType))
	v = bytesutil.PutUint32(v, d.KeyDuration.LeaseDuration)
	v = bytesutil.PutUint32(v, d.KeyDuration.RentalDuration)
	v = bytesutil.PutUint32(v, d.KeyDuration.PlaybackDuration)
	v = append(v, contentID...)
	return tllv.Build(uint64(spctag.TagOfflineKey), v, 0)
}

func padOrTruncate(b []byte, size int) []byte {
	out := make([]byte, size)
	copy(out, b)
	return out
}

package spctag

import (
	"encoding/binary"

	"github.com/barnettlynn/fpsckc/internal/fpserrors"
)

// DeviceIdentity is the decoded value of a device-identity TLLV.
//
// Field offsets are grounded on parseTagDeviceIdentity.rs: 4-byte FPDI
// version, 4-byte device class, 8-byte vendor hash, 8-byte product hash,
// 4-byte REE version, 4-byte TEE version, 4-byte OS version — 36 bytes
// total.
type DeviceIdentity struct {
	FPDIVersion uint32
	DeviceClass DeviceClass
	VendorHash  []byte
	ProductHash []byte
	FPVersionREE uint32
	FPVersionTEE uint32
	OSVersion    uint32
}

const deviceIdentitySize = 4 + 4 + VendorHashSize + ProductHashSize + 4 + 4 + 4

// ParseDeviceIdentity decodes a device-identity TLLV value.
func ParseDeviceIdentity(value []byte) (*DeviceIdentity, error) {
	if len(value) < deviceIdentitySize {
		return nil, fpserrors.New(fpserrors.CodeParserErr)
	}
	di := &DeviceIdentity{
		FPDIVersion:  binary.BigEndian.Uint32(value[0:4]),
		DeviceClass:  DeviceClassFromUint32(binary.BigEndian.Uint32(value[4:8])),
		VendorHash:   append([]byte(nil), value[8:8+VendorHashSize]...),
		ProductHash:  append([]byte(nil), value[16:16+ProductHashSize]...),
		FPVersionREE: binary.BigEndian.Uint32(value[24:28]),
		FPVersionTEE: binary.BigEndian.Uint32(value[28:32]),
		OSVersion:    binary.BigEndian.Uint32(value[32:36]),
	}
	return di, nil
}

// ParseAssetID validates and returns an asset-id TLLV's value. The whole
// value is the asset id; only its length is constrained, per
// parseTagAssetID.rs.
func ParseAssetID(value []byte) ([]byte, error) {
	if len(value) < AssetIDMinSize || len(value) > AssetIDMaxSize {
		return nil, fpserrors.New(fpserrors.CodeParserErr)
	}
	return append([]byte(nil), value...), nil
}

// ParseClientCapabilities validates a capabilities TLLV's fixed-size
// flags field, per parseTagClientCapabilities.rs.
func ParseClientCapabilities(value []byte) (uint64, error) {
	if len(value) != CapabilitiesFlagsLength {
		return 0, fpserrors.New(fpserrors.CodeParamErr)
	}
	// The flags occupy the first 8 bytes; the remainder is reserved.
	return binary.BigEndian.Uint64(value[:8]), nil
}

// HasCapability reports whether flag bit is set in a decoded
// capabilities value.
func HasCapability(flags uint64, bit uint64) bool {
	return flags&bit != 0
}

// exactSize validates a fixed-size TLLV payload, returning ParamErr on
// mismatch — the same distinction the original SDK draws between a
// variable-bounds field (ParserErr) and a fixed-size field (ParamErr).
func exactSize(value []byte, want int) error {
	if len(value) != want {
		return fpserrors.New(fpserrors.CodeParamErr)
	}
	return nil
}

// ParseSessionKeyR1 validates the 112-byte wrapped session key.
func ParseSessionKeyR1(value []byte) ([]byte, error) {
	if err := exactSize(value, SKR1Size); err != nil {
		return nil, err
	}
	return append([]byte(nil), value...), nil
}

// ParseSessionKeyR1Integrity validates the 16-byte integrity tag.
func ParseSessionKeyR1Integrity(value []byte) ([]byte, error) {
	if err := exactSize(value, SessionKeyR1IntegritySz); err != nil {
		return nil, err
	}
	return append([]byte(nil), value...), nil
}

// ParseAntiReplay validates the 16-byte anti-replay seed.
func ParseAntiReplay(value []byte) ([]byte, error) {
	if err := exactSize(value, 16); err != nil {
		return nil, err
	}
	return append([]byte(nil), value...), nil
}

// ParseR2 validates the 21-byte R2 nonce.
func ParseR2(value []byte) ([]byte, error) {
	if err := exactSize(value, R2Size); err != nil {
		return nil, err
	}
	return append([]byte(nil), value...), nil
}

// ParseTransactionID validates the 8-byte transaction id.
func ParseTransactionID(value []byte) (uint64, error) {
	if err := exactSize(value, 8); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(value), nil
}

// ParseProtocolVersionUsed validates the 4-byte protocol version field.
func ParseProtocolVersionUsed(value []byte) (uint32, error) {
	if err := exactSize(value, 4); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(value), nil
}

// ParseProtocolVersionsSupported decodes an n*4-byte list of versions,
// bounded to MaxCryptoVersions entries.
func ParseProtocolVersionsSupported(value []byte) ([]uint32, error) {
	if len(value)%4 != 0 {
		return nil, fpserrors.New(fpserrors.CodeParserErr)
	}
	n := len(value) / 4
	if n > MaxCryptoVersions {
		return nil, fpserrors.New(fpserrors.CodeParserErr)
	}
	out := make([]uint32, n)
	for i := 0; i < n; i++ {
		out[i] = binary.BigEndian.Uint32(value[i*4 : i*4+4])
	}
	return out, nil
}

// ParseStreamingIndicator validates the 8-byte streaming indicator tag.
func ParseStreamingIndicator(value []byte) (uint64, error) {
	if err := exactSize(value, 8); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(value), nil
}

// PlayInfo is the decoded value of a media-playback-state TLLV.
type PlayInfo struct {
	Date          uint32
	PlaybackState DevicePlaybackState
	PlaybackID    uint64
}

// ParseMediaPlaybackState decodes the 16-byte date+state+playback-id
// triple.
func ParseMediaPlaybackState(value []byte) (*PlayInfo, error) {
	if err := exactSize(value, 16); err != nil {
		return nil, err
	}
	return &PlayInfo{
		Date:          binary.BigEndian.Uint32(value[0:4]),
		PlaybackState: DevicePlaybackState(binary.BigEndian.Uint32(value[4:8])),
		PlaybackID:    binary.BigEndian.Uint64(value[8:16]),
	}, nil
}

// DeviceInfo is the decoded value of a legacy device-info TLLV.
type DeviceInfo struct {
	DeviceType AppleDeviceType
	OSVersion  uint32
}

// ParseDeviceInfo decodes the legacy 12-byte type+osVersion TLLV.
func ParseDeviceInfo(value []byte) (*DeviceInfo, error) {
	if err := exactSize(value, 12); err != nil {
		return nil, err
	}
	return &DeviceInfo{
		DeviceType: AppleDeviceType(binary.BigEndian.Uint64(value[0:8])),
		OSVersion:  binary.BigEndian.Uint32(value[8:12]),
	}, nil
}

// OfflineSync is the decoded check-in/offline-sync TLLV value.
type OfflineSync struct {
	ServerChallenge uint64
	Flags           uint64
	TitleID         []byte
	Duration        uint32
	RecordsDeleted  uint32
	DeletedContentIDs [][]byte
}

const offlineSyncFixedSize = 8 + 8 + OfflineContentIDLength + 4 + 4

// ParseOfflineSync decodes the variable-length check-in block: a fixed
// header followed by RecordsDeleted * 16-byte content ids.
func ParseOfflineSync(value []byte) (*OfflineSync, error) {
	if len(value) < offlineSyncFixedSize {
		return nil, fpserrors.New(fpserrors.CodeParserErr)
	}
	s := &OfflineSync{
		ServerChallenge: binary.BigEndian.Uint64(value[0:8]),
		Flags:           binary.BigEndian.Uint64(value[8:16]),
		TitleID:         append([]byte(nil), value[16:16+OfflineContentIDLength]...),
	}
	off := 16 + OfflineContentIDLength
	s.Duration = binary.BigEndian.Uint32(value[off : off+4])
	s.RecordsDeleted = binary.BigEndian.Uint32(value[off+4 : off+8])
	off += 8
	need := off + int(s.RecordsDeleted)*OfflineContentIDLength
	if len(value) < need {
		return nil, fpserrors.New(fpserrors.CodeParserErr)
	}
	for i := 0; i < int(s.RecordsDeleted); i++ {
		start := off + i*OfflineContentIDLength
		s.DeletedContentIDs = append(s.DeletedContentIDs, append([]byte(nil), value[start:start+OfflineContentIDLength]...))
	}
	return s, nil
}

// ParseSupportedKeyFormat decodes a list of up to MaxKeyFormats 8-byte
// format tags.
func ParseSupportedKeyFormat(value []byte) ([]KeyFormat, error) {
	if len(value)%8 != 0 {
		return nil, fpserrors.New(fpserrors.CodeParserErr)
	}
	n := len(value) / 8
	if n > MaxKeyFormats {
		return nil, fpserrors.New(fpserrors.CodeParserErr)
	}
	out := make([]KeyFormat, n)
	for i := 0; i < n; i++ {
		out[i] = KeyFormat(binary.BigEndian.Uint64(value[i*8 : i*8+8]))
	}
	return out, nil
}

// SecurityLevelReport is the decoded, already-decrypted value of a
// security-level-report TLLV (the 32-byte encrypted block itself is
// handled by the envelope cryptor; this decodes the plaintext).
type SecurityLevelReport struct {
	Version uint32
	Level   uint64
}

// ParseSecurityLevelReport decodes the version+level pair.
func ParseSecurityLevelReport(value []byte) (*SecurityLevelReport, error) {
	if err := exactSize(value, 12); err != nil {
		return nil, err
	}
	return &SecurityLevelReport{
		Version: binary.BigEndian.Uint32(value[0:4]),
		Level:   binary.BigEndian.Uint64(value[4:12]),
	}, nil
}

// ParseKDLVersionReport validates the 4-byte kext-deny-list version.
func ParseKDLVersionReport(value []byte) (uint32, error) {
	if err := exactSize(value, 4); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(value), nil
}

// VMEndpoint is one side (host or guest) of a vm-device-info TLLV.
type VMEndpoint struct {
	DeviceClass     DeviceClass
	OSVersion       uint32
	VMProtocolVersion uint32
}

// VMDeviceInfo is the decoded vm-device-info TLLV value.
type VMDeviceInfo struct {
	Host  VMEndpoint
	Guest VMEndpoint
}

// ParseVMDeviceInfo decodes the host+guest (class,os,proto) sextuple.
func ParseVMDeviceInfo(value []byte) (*VMDeviceInfo, error) {
	if err := exactSize(value, 24); err != nil {
		return nil, err
	}
	return &VMDeviceInfo{
		Host: VMEndpoint{
			DeviceClass:       DeviceClassFromUint32(binary.BigEndian.Uint32(value[0:4])),
			OSVersion:         binary.BigEndian.Uint32(value[4:8]),
			VMProtocolVersion: binary.BigEndian.Uint32(value[8:12]),
		},
		Guest: VMEndpoint{
			DeviceClass:       DeviceClassFromUint32(binary.BigEndian.Uint32(value[12:16])),
			OSVersion:         binary.BigEndian.Uint32(value[16:20]),
			VMProtocolVersion: binary.BigEndian.Uint32(value[20:24]),
		},
	}, nil
}

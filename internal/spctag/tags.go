// Package spctag defines the TLLV tag values and enumerated constants
// exchanged inside SPC and CKC payloads, and the per-tag decoders.
//
// Values are carried over verbatim from the original FairPlay Streaming
// Server SDK's FPSTLLVTagValue and related enums so a real client's SPC
// dispatches against the tags this server actually expects.
package spctag

// Tag identifies one TLLV entry's purpose.
type Tag uint64

const (
	TagR2                      Tag = 0x71b5595ac1521133
	TagAntiReplay              Tag = 0x89c90f12204106b2
	TagSessionKeyR1            Tag = 0x3d1a10b8bffac2ec
	TagSessionKeyR1Integrity   Tag = 0xb349d4809e910687
	TagAssetID                 Tag = 0x1bf7f53f5d5d5a1f
	TagTransactionID           Tag = 0x47aa7ad3440577de
	TagProtocolVersionUsed     Tag = 0x5d81bcbcc7f61703
	TagProtocolVersionsSupport Tag = 0x67b8fb79ecce1a13
	TagReturnRequest           Tag = 0x19f9d4e5ab7609cb
	TagR1                      Tag = 0xea74c4645d5efee9
	TagStreamingIndicator      Tag = 0xabb0256a31843974
	TagMediaPlaybackState      Tag = 0xeb8efdf2b25ab3a0
	TagOfflineSync             Tag = 0x77966de1dc1083ad
	TagCapabilities            Tag = 0x9c02af3253c07fb2
	TagKeyDuration             Tag = 0x47acf6a418cd091a
	TagOfflineKey              Tag = 0x6375d9727060218c
	TagHDCPInformation         Tag = 0x2e52f1530d8ddb4a
	TagSecurityLevel           Tag = 0x644cb1dac0313250
	TagSupportedKeyFormat      Tag = 0x8d8e84fa6cc35eb7
	TagSecurityLevelReport     Tag = 0xb18ee16ea50f6c02
	TagDeviceInfo              Tag = 0xd43fc6abc596aae7
	TagDeviceIdentity          Tag = 0x94c17cd676c69b59
	TagKDLVersionReport        Tag = 0x70eca6573388e329
	TagVMDeviceInfo            Tag = 0x756440e240499f70
)

// Size constants from the original SDK's base_constants.rs.
const (
	AssetIDMinSize         = 2
	AssetIDMaxSize         = 200
	SessionKeyR1IntegritySz = 16
	HashSz                 = 20
	R2Size                 = 21
	R1Size                 = 44
	HUSize                 = 20
	SKR1Size               = 112
	WrappedKeyV1Size       = 128
	WrappedKeyV2Size       = 256
	EncryptedSecurityLevelReportSize = 32
	VendorHashSize         = 8
	ProductHashSize        = 8
	CapabilitiesFlagsLength = 16
	OfflineContentIDLength = 16
	MaxStreamIDLength      = 16
	MaxTitleIDLength       = 16
	MaxCryptoVersions      = 100
	MaxKeyFormats          = 64

	NoLeaseDuration uint32 = 0xFFFFFFFF

	KeyDurationReservedFieldValue uint32 = 0x86d34a3a

	// SyncFlagTitleIDValid is bit 3 of the offline-sync/check-in flags
	// field: when set, the client is reporting (or the server is
	// returning) a title id alongside the stream id.
	SyncFlagTitleIDValid uint64 = 1 << 3
)

// HDCPRequirement is the client's/server's negotiated HDCP level.
type HDCPRequirement uint64

const (
	HDCPNotRequired HDCPRequirement = 0xef72894ca7895b78
	HDCPType0       HDCPRequirement = 0x40791ac78bd5c571
	HDCPType1       HDCPRequirement = 0x285a0863bba8e1d3
)

// KeyDurationType distinguishes lease/rental/persistence key semantics.
type KeyDurationType uint32

const (
	KeyDurationNone                   KeyDurationType = 0
	KeyDurationLease                  KeyDurationType = 0x1a4bde7e
	KeyDurationRental                 KeyDurationType = 0x3dfe45a0
	KeyDurationLeaseAndRental         KeyDurationType = 0x27b59bde
	KeyDurationPersistence            KeyDurationType = 0x3df2d9fb
	KeyDurationPersistenceAndDuration KeyDurationType = 0x18f06048
)

// DevicePlaybackState reports whether the client still needs the
// content key to continue playback.
type DevicePlaybackState uint32

const (
	FirstPlaybackCKRequired       DevicePlaybackState = 0xf4dee5a2
	CurrentlyPlayingCKRequired    DevicePlaybackState = 0x4f834330
	CurrentlyPlayingCKNotRequired DevicePlaybackState = 0xa5d6739e
)

// AppleDeviceType is the vendor field inside a device-identity TLLV.
type AppleDeviceType uint64

const (
	DeviceTypeMac   AppleDeviceType = 0x358c41b1ec78f599
	DeviceTypeTV    AppleDeviceType = 0xc1500767c86c1fae
	DeviceTypeIOS   AppleDeviceType = 0x8551fd5e31f479b3
	DeviceTypeWatch AppleDeviceType = 0x5da86ac0c57155dc
)

// DeviceClass groups playback devices for VM-gating and device-class
// reporting purposes.
type DeviceClass uint32

const (
	DeviceClassUnknown           DeviceClass = 0
	DeviceClassAppleLivingRoom   DeviceClass = 1
	DeviceClassAppleMobile       DeviceClass = 2
	DeviceClassAppleDesktop      DeviceClass = 3
	DeviceClassAppleSpatial      DeviceClass = 4
	DeviceClassAppleWearable     DeviceClass = 5
	DeviceClassAppleUnknown      DeviceClass = 127
	DeviceClassPartnerLivingRoom DeviceClass = 128
	DeviceClassPartnerUnknown    DeviceClass = 255
)

// DeviceClassFromUint32 mirrors the original SDK's From<u32> conversion:
// any value not in the known set collapses to DeviceClassUnknown rather
// than erroring.
func DeviceClassFromUint32(v uint32) DeviceClass {
	switch v {
	case 1:
		return DeviceClassAppleLivingRoom
	case 2:
		return DeviceClassAppleMobile
	case 3:
		return DeviceClassAppleDesktop
	case 4:
		return DeviceClassAppleSpatial
	case 5:
		return DeviceClassAppleWearable
	case 127:
		return DeviceClassAppleUnknown
	case 128:
		return DeviceClassPartnerLivingRoom
	case 255:
		return DeviceClassPartnerUnknown
	default:
		return DeviceClassUnknown
	}
}

// Capability bit flags carried in the capabilities TLLV.
const (
	CapabilityHDCPType1EnforcementSupported uint64 = 1
	CapabilityOfflineKeySupported           uint64 = 1 << 1
	CapabilityCheckInSupported              uint64 = 1 << 2
	CapabilityOfflineKeyV2Supported         uint64 = 1 << 3
	CapabilitySecurityLevelBaselineSupported uint64 = 1 << 4
	CapabilitySecurityLevelMainSupported    uint64 = 1 << 5
)

// KeyFormat is the format tag a client reports supporting in the
// supported-key-format TLLV.
type KeyFormat uint64

// LegacyKeyFormat16Byte is substituted when a legacy client reports zero
// supported key formats, matching FPSKeyFormatTag::buf16Byte.
const LegacyKeyFormat16Byte KeyFormat = 0x58b38165af0e3d5a

// SecurityLevel orders client security capability so it can be compared
// against a content class's required level. Values and ordering match
// FPSSecurityLevel exactly: audio < baseline < main.
type SecurityLevel uint64

const (
	SecurityLevelAudio    SecurityLevel = 0x17d99d574eed567d
	SecurityLevelBaseline SecurityLevel = 0x32f0004966a5c4f8
	SecurityLevelMain     SecurityLevel = 0x4e7fd92421d588b4
)

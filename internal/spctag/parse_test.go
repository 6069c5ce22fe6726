package spctag

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseDeviceIdentity(t *testing.T) {
	buf := make([]byte, 36)
	binary.BigEndian.PutUint32(buf[0:4], 7)
	binary.BigEndian.PutUint32(buf[4:8], 2) // appleMobile
	copy(buf[8:16], []byte{1, 2, 3, 4, 5, 6, 7, 8})
	copy(buf[16:24], []byte{8, 7, 6, 5, 4, 3, 2, 1})
	binary.BigEndian.PutUint32(buf[24:28], 0x0100)
	binary.BigEndian.PutUint32(buf[28:32], 0x0200)
	binary.BigEndian.PutUint32(buf[32:36], 0x0300)

	di, err := ParseDeviceIdentity(buf)
	require.NoError(t, err)
	require.Equal(t, uint32(7), di.FPDIVersion)
	require.Equal(t, DeviceClassAppleMobile, di.DeviceClass)
	require.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, di.VendorHash)
	require.Equal(t, uint32(0x0100), di.FPVersionREE)
	require.Equal(t, uint32(0x0300), di.OSVersion)
}

func TestParseDeviceIdentityRejectsShortBuffer(t *testing.T) {
	_, err := ParseDeviceIdentity(make([]byte, 10))
	require.Error(t, err)
}

func TestDeviceClassFromUint32UnknownFallsBackToUnknown(t *testing.T) {
	require.Equal(t, DeviceClassAppleDesktop, DeviceClassFromUint32(3))
	require.Equal(t, DeviceClassUnknown, DeviceClassFromUint32(42))
}

func TestParseAssetIDEnforcesBounds(t *testing.T) {
	_, err := ParseAssetID([]byte{1})
	require.Error(t, err)

	valid, err := ParseAssetID([]byte{1, 2, 3})
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, valid)

	_, err = ParseAssetID(make([]byte, AssetIDMaxSize+1))
	require.Error(t, err)
}

func TestParseClientCapabilitiesAndHasCapability(t *testing.T) {
	buf := make([]byte, CapabilitiesFlagsLength)
	binary.BigEndian.PutUint64(buf[:8], CapabilityHDCPType1EnforcementSupported|CapabilityOfflineKeySupported)

	flags, err := ParseClientCapabilities(buf)
	require.NoError(t, err)
	require.True(t, HasCapability(flags, CapabilityHDCPType1EnforcementSupported))
	require.True(t, HasCapability(flags, CapabilityOfflineKeySupported))
	require.False(t, HasCapability(flags, CapabilityCheckInSupported))
}

func TestParseOfflineSyncDecodesDeletedContentIDs(t *testing.T) {
	titleID := make([]byte, OfflineContentIDLength)
	contentID := make([]byte, OfflineContentIDLength)
	for i := range contentID {
		contentID[i] = byte(i)
	}

	buf := make([]byte, 0, offlineSyncFixedSize+OfflineContentIDLength)
	challenge := make([]byte, 8)
	binary.BigEndian.PutUint64(challenge, 0xdeadbeef)
	buf = append(buf, challenge...)
	flags := make([]byte, 8)
	binary.BigEndian.PutUint64(flags, SyncFlagTitleIDValid)
	buf = append(buf, flags...)
	buf = append(buf, titleID...)
	fixedTail := make([]byte, 8)
	binary.BigEndian.PutUint32(fixedTail[0:4], 3600)
	binary.BigEndian.PutUint32(fixedTail[4:8], 1)
	buf = append(buf, fixedTail...)
	buf = append(buf, contentID...)

	sync, err := ParseOfflineSync(buf)
	require.NoError(t, err)
	require.Equal(t, uint64(0xdeadbeef), sync.ServerChallenge)
	require.Equal(t, SyncFlagTitleIDValid, sync.Flags)
	require.Equal(t, uint32(3600), sync.Duration)
	require.Equal(t, uint32(1), sync.RecordsDeleted)
	require.Len(t, sync.DeletedContentIDs, 1)
	require.Equal(t, contentID, sync.DeletedContentIDs[0])
}

func TestParseSupportedKeyFormatBoundsCount(t *testing.T) {
	_, err := ParseSupportedKeyFormat(make([]byte, 7))
	require.Error(t, err)

	formats, err := ParseSupportedKeyFormat(make([]byte, 16))
	require.NoError(t, err)
	require.Len(t, formats, 2)
}

package policy

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/barnettlynn/fpsckc/internal/fpserrors"
	"github.com/barnettlynn/fpsckc/internal/spc"
	"github.com/barnettlynn/fpsckc/internal/spctag"
)

func baseData() *spc.Data {
	return &spc.Data{
		ClientKextDenyListVersion: 40,
		ClientCapabilities:        spctag.CapabilityHDCPType1EnforcementSupported | spctag.CapabilitySecurityLevelMainSupported,
	}
}

func TestEvaluateUHDRequiresHDCPType1AndMainSecurity(t *testing.T) {
	cfg := Config{MinKDLVersion: 31}
	data := baseData()

	dec, err := Evaluate(cfg, data, AssetInfo{HDCPReq: spctag.HDCPType1, LeaseDuration: spctag.NoLeaseDuration, ContentType: ContentTypeUHD}, false)
	require.NoError(t, err)
	require.Equal(t, spctag.SecurityLevelMain, dec.RequiredSecurityLevel)
}

func TestEvaluateUHDRejectsBaselineOnlyClient(t *testing.T) {
	cfg := Config{MinKDLVersion: 31}
	data := baseData()
	data.ClientCapabilities = spctag.CapabilityHDCPType1EnforcementSupported | spctag.CapabilitySecurityLevelBaselineSupported

	_, err := Evaluate(cfg, data, AssetInfo{HDCPReq: spctag.HDCPType1, LeaseDuration: spctag.NoLeaseDuration, ContentType: ContentTypeUHD}, false)
	require.True(t, fpserrors.IsClientSecurityLevelErr(err))
}

func TestEvaluateUHDWithoutHDCPType1Fails(t *testing.T) {
	cfg := Config{MinKDLVersion: 31}
	data := baseData()

	_, err := Evaluate(cfg, data, AssetInfo{HDCPReq: spctag.HDCPType0, LeaseDuration: spctag.NoLeaseDuration, ContentType: ContentTypeUHD}, false)
	require.True(t, fpserrors.Is(err, fpserrors.CodeParamErr))
}

func TestEvaluateOfflineHLSWithLeaseIsRejected(t *testing.T) {
	cfg := Config{MinKDLVersion: 31}
	data := baseData()

	_, err := Evaluate(cfg, data, AssetInfo{LeaseDuration: 600, IsOfflineHLS: true, ContentType: ContentTypeSD}, false)
	require.True(t, fpserrors.IsParamErr(err))
}

func TestEvaluateCheckInWithoutOfflineSyncFails(t *testing.T) {
	cfg := Config{MinKDLVersion: 31}
	data := baseData()
	data.OfflineSync = nil

	_, err := Evaluate(cfg, data, AssetInfo{LeaseDuration: spctag.NoLeaseDuration, ContentType: ContentTypeSD}, true)
	require.True(t, fpserrors.IsParamErr(err))
}

func TestEvaluateRejectsStaleKDLVersion(t *testing.T) {
	cfg := Config{MinKDLVersion: 31}
	data := baseData()
	data.ClientKextDenyListVersion = 10

	_, err := Evaluate(cfg, data, AssetInfo{LeaseDuration: spctag.NoLeaseDuration, ContentType: ContentTypeSD}, false)
	require.True(t, fpserrors.IsClientSecurityLevelErr(err))
}

func TestEvaluateAudioMapsToAudioSecurityLevel(t *testing.T) {
	cfg := Config{MinKDLVersion: 31}
	data := baseData()

	dec, err := Evaluate(cfg, data, AssetInfo{LeaseDuration: spctag.NoLeaseDuration, ContentType: ContentTypeAudio}, false)
	require.NoError(t, err)
	require.Equal(t, spctag.SecurityLevelAudio, dec.RequiredSecurityLevel)
}

func TestEvaluateRejectsVMPlaybackWhenConfigured(t *testing.T) {
	cfg := Config{MinKDLVersion: 31, RejectVMPlayback: true}
	data := baseData()
	data.VMDeviceInfo = &spctag.VMDeviceInfo{}

	_, err := Evaluate(cfg, data, AssetInfo{LeaseDuration: spctag.NoLeaseDuration, ContentType: ContentTypeSD}, false)
	require.True(t, fpserrors.IsClientSecurityLevelErr(err))
}

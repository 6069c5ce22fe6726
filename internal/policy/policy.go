// Package policy implements the content-class/security/HDCP/check-in
// business rules applied after SPC parsing and before the content-key
// payload binder runs.
//
// Every rule and its ordering is grounded directly on business_rules.rs's
// checkBusinessRules — including the VM-gating check, which the original
// ships commented out and this server exposes as a live config toggle
// (fpsconfig.PolicyConfig.RejectVMPlayback) instead.
package policy

import (
	"github.com/barnettlynn/fpsckc/internal/fpserrors"
	"github.com/barnettlynn/fpsckc/internal/spc"
	"github.com/barnettlynn/fpsckc/internal/spctag"
)

// ContentType mirrors the original SDK's ContentType enum.
type ContentType int

const (
	ContentTypeUnknown ContentType = iota
	ContentTypeAudio
	ContentTypeSD
	ContentTypeHD
	ContentTypeUHD
)

// AssetInfo carries the policy-relevant fields of an operation's
// asset-info block (see spec §3's Operation.assetInfo).
type AssetInfo struct {
	HDCPReq        spctag.HDCPRequirement
	LeaseDuration  uint32
	IsOfflineHLS   bool
	ContentType    ContentType
}

// Config is the subset of fpsconfig.PolicyConfig the engine consults.
type Config struct {
	MinKDLVersion    uint32
	RejectVMPlayback bool
}

// Decision is what the engine hands back to the CKC builder: the
// security level to stamp into the CKC's security-level TLLV.
type Decision struct {
	RequiredSecurityLevel spctag.SecurityLevel
}

// Evaluate runs every rule in business_rules.rs's order and returns the
// security-level decision, or the first failing rule's status.
func Evaluate(cfg Config, data *spc.Data, asset AssetInfo, isCheckIn bool) (Decision, error) {
	var dec Decision

	if data.ClientKextDenyListVersion > 0 && data.ClientKextDenyListVersion < cfg.MinKDLVersion {
		return dec, fpserrors.New(fpserrors.CodeClientSecurityLevelErr)
	}

	if asset.LeaseDuration != spctag.NoLeaseDuration && asset.LeaseDuration != 0 && asset.IsOfflineHLS {
		return dec, fpserrors.New(fpserrors.CodeParamErr)
	}

	if isCheckIn && (data.OfflineSync == nil || data.OfflineSync.Flags == 0) {
		return dec, fpserrors.New(fpserrors.CodeParamErr)
	}

	supportsBaseline := spctag.HasCapability(data.ClientCapabilities, spctag.CapabilitySecurityLevelBaselineSupported)
	supportsMain := spctag.HasCapability(data.ClientCapabilities, spctag.CapabilitySecurityLevelMainSupported)
	supportsHDCPType1 := spctag.HasCapability(data.ClientCapabilities, spctag.CapabilityHDCPType1EnforcementSupported)

	switch asset.ContentType {
	case ContentTypeUHD:
		dec.RequiredSecurityLevel = spctag.SecurityLevelMain
		if data.SecurityLevelReport != nil {
			if spctag.SecurityLevel(data.SecurityLevelReport.Level) < spctag.SecurityLevelMain {
				return dec, fpserrors.New(fpserrors.CodeClientSecurityLevelErr)
			}
		} else if supportsBaseline && !supportsMain {
			return dec, fpserrors.New(fpserrors.CodeClientSecurityLevelErr)
		}
		if asset.HDCPReq != spctag.HDCPType1 {
			return dec, fpserrors.New(fpserrors.CodeParamErr)
		}

	case ContentTypeHD:
		dec.RequiredSecurityLevel = spctag.SecurityLevelBaseline
		if data.SecurityLevelReport != nil && spctag.SecurityLevel(data.SecurityLevelReport.Level) < spctag.SecurityLevelBaseline {
			return dec, fpserrors.New(fpserrors.CodeClientSecurityLevelErr)
		}
		if asset.HDCPReq == spctag.HDCPNotRequired {
			return dec, fpserrors.New(fpserrors.CodeParamErr)
		}

	case ContentTypeSD:
		dec.RequiredSecurityLevel = spctag.SecurityLevelBaseline
		if data.SecurityLevelReport != nil && spctag.SecurityLevel(data.SecurityLevelReport.Level) < spctag.SecurityLevelBaseline {
			return dec, fpserrors.New(fpserrors.CodeClientSecurityLevelErr)
		}

	case ContentTypeAudio:
		dec.RequiredSecurityLevel = spctag.SecurityLevelAudio

	default: // ContentTypeUnknown
		dec.RequiredSecurityLevel = spctag.SecurityLevelMain
	}

	if asset.HDCPReq == spctag.HDCPType1 && !supportsHDCPType1 {
		return dec, fpserrors.New(fpserrors.CodeClientSecurityLevelErr)
	}

	if cfg.RejectVMPlayback && data.VMDeviceInfo != nil {
		return dec, fpserrors.New(fpserrors.CodeClientSecurityLevelErr)
	}

	return dec, nil
}

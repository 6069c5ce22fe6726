// Package batch accepts one fairplay-streaming-request document and
// drives each create-ckc entry through parse (§4.E), policy (§4.F),
// binder (§4.G), and CKC assembly (§4.H), producing an ordered,
// best-effort fairplay-streaming-response — component I of the
// pipeline.
//
// The per-operation panic recovery is grounded on bin/local.rs's
// panic::catch_unwind wrapper around request handling; here it is
// scoped per-operation rather than per-batch so one operation's panic
// cannot take its siblings down with it, which is the stronger of the
// two guarantees the specification asks for ("per-operation failures
// ... serialization continues for siblings" and "a panic ... is
// trapped ... and converted to a synthetic failure response").
package batch

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/barnettlynn/fpsckc/internal/binder"
	"github.com/barnettlynn/fpsckc/internal/ckc"
	"github.com/barnettlynn/fpsckc/internal/credentials"
	"github.com/barnettlynn/fpsckc/internal/fpserrors"
	"github.com/barnettlynn/fpsckc/internal/fpslog"
	"github.com/barnettlynn/fpsckc/internal/policy"
	"github.com/barnettlynn/fpsckc/internal/result"
	"github.com/barnettlynn/fpsckc/internal/spc"
	"github.com/barnettlynn/fpsckc/internal/spctag"
)

// offlineHLS is the optional asset-info sub-object naming the stream
// and title a persisted key belongs to.
type offlineHLS struct {
	StreamID string `json:"stream-id"`
	TitleID  string `json:"title-id"`
}

// assetInfo mirrors the inbound JSON asset-info object, §6.
type assetInfo struct {
	ContentKey       string      `json:"content-key"`
	ContentIV        string      `json:"content-iv"`
	HDCPType         int         `json:"hdcp-type"`
	LeaseDuration    uint32      `json:"lease-duration"`
	RentalDuration   uint32      `json:"rental-duration"`
	PlaybackDuration uint32      `json:"playback-duration"`
	ContentType      string      `json:"content-type"`
	OfflineHLS       *offlineHLS `json:"offline-hls,omitempty"`
}

// createCKCRequest is one inbound create-ckc entry.
type createCKCRequest struct {
	ID        uint64    `json:"id"`
	SPC       string    `json:"spc"`
	AssetInfo assetInfo `json:"asset-info"`
	CheckIn   bool      `json:"check-in,omitempty"`
}

// Request is the full inbound JSON document.
type Request struct {
	FairplayStreamingRequest struct {
		CreateCKC []createCKCRequest `json:"create-ckc"`
	} `json:"fairplay-streaming-request"`
}

// Response is the full outbound JSON document.
type Response struct {
	FairplayStreamingResponse struct {
		CreateCKC []map[string]any `json:"create-ckc"`
	} `json:"fairplay-streaming-response"`
}

// Orchestrator holds everything an operation's pipeline needs beyond
// the request itself: credentials, policy configuration, and the
// content-key binder.
type Orchestrator struct {
	Credentials credentials.Provider
	Policy      policy.Config
	Binder      binder.Binder
}

// Run decodes raw as a Request, processes every create-ckc entry
// independently and in order, and returns the corresponding Response.
// A malformed envelope (the outer JSON itself, not one entry) is
// reported as a single-element synthetic response.
func (o *Orchestrator) Run(raw []byte) Response {
	requestID := uuid.NewString()
	log := fpslog.WithRequest(requestID)

	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		log.Warn().Err(err).Msg("malformed fairplay-streaming-request envelope")
		var resp Response
		resp.FairplayStreamingResponse.CreateCKC = []map[string]any{
			result.Serialize(result.Operation{Status: fpserrors.CodeParamErr}),
		}
		return resp
	}

	log.Info().Int("operations", len(req.FairplayStreamingRequest.CreateCKC)).Msg("processing batch")

	ops := make([]result.Operation, 0, len(req.FairplayStreamingRequest.CreateCKC))
	for _, entry := range req.FairplayStreamingRequest.CreateCKC {
		ops = append(ops, o.runOneSafely(entry))
	}

	var resp Response
	resp.FairplayStreamingResponse.CreateCKC = result.SerializeAll(ops)
	return resp
}

// runOneSafely traps a panic in any pipeline stage and converts it into
// a synthetic InternalErr result, so one operation's crash never stops
// the batch.
func (o *Orchestrator) runOneSafely(req createCKCRequest) (op result.Operation) {
	defer func() {
		if r := recover(); r != nil {
			fpslog.Logger().Error().Interface("panic", r).Uint64("id", req.ID).Msg("operation panicked")
			op = result.Operation{ID: req.ID, Status: fpserrors.CodeInternalErr}
		}
	}()
	return o.runOne(req)
}

func (o *Orchestrator) runOne(req createCKCRequest) result.Operation {
	fail := func(code fpserrors.Code) result.Operation {
		return result.Operation{ID: req.ID, Status: code}
	}

	spcBytes, err := decodeBase64(req.SPC)
	if err != nil {
		return fail(fpserrors.CodeParamErr)
	}

	container, err := spc.Parse(spcBytes, o.Credentials)
	if err != nil {
		return fail(fpserrors.CodeOf(err))
	}

	asset, err := toPolicyAssetInfo(req.AssetInfo)
	if err != nil {
		return fail(fpserrors.CodeOf(err))
	}

	dec, err := policy.Evaluate(o.Policy, &container.Data, asset, req.CheckIn)
	if err != nil {
		return fail(fpserrors.CodeOf(err))
	}

	contentKey, err := decodeHexExact(req.AssetInfo.ContentKey, 16)
	if err != nil {
		return fail(fpserrors.CodeParamErr)
	}
	contentIV, err := decodeHexExact(req.AssetInfo.ContentIV, 16)
	if err != nil {
		return fail(fpserrors.CodeParamErr)
	}

	provisioningData, err := o.Credentials.ProvisioningData()
	if err != nil {
		return fail(fpserrors.CodeInternalErr)
	}

	bindReq := binder.Request{
		ContentKey:          contentKey,
		ContentIV:           contentIV,
		ContentType:         binder.VideoContentType(asset.ContentType == policy.ContentTypeSD, asset.ContentType == policy.ContentTypeHD, asset.ContentType == policy.ContentTypeUHD),
		SKR1:                container.Data.SessionKeyR1,
		R2:                  container.Data.R2,
		R1Integrity:         container.Data.SessionKeyR1Integrity,
		SupportedKeyFormats: container.Data.SupportedKeyFormats,
		CryptoVersionUsed:   container.Data.VersionUsed,
		ProvisioningData:    provisioningData,
		CertHash:            container.CertHash,
	}
	if asset.ContentType == policy.ContentTypeAudio {
		bindReq.ContentType = binder.ContentTypeAudio
	}

	bindResp, err := o.Binder.CreateKeyPayload(bindReq)
	if err != nil {
		return fail(fpserrors.CodeOf(err))
	}

	ckcData := ckc.Data{
		R1:                     bindResp.R1,
		KeyDuration:            deriveKeyDuration(req.AssetInfo, asset),
		HDCPTypeTLLVValue:      asset.HDCPReq,
		ContentKeyTLLVTag:      bindResp.ContentKeyTLLVTag,
		ContentKeyTLLVPayload:  bindResp.ContentKeyTLLVPayload,
		RequiredSecurityLevel:  dec.RequiredSecurityLevel,
		ReturnRequest:          container.Data.ReturnRequest,
		SupportsOfflineKeyTLLV: spctag.HasCapability(container.Data.ClientCapabilities, spctag.CapabilityOfflineKeySupported),
		SupportsOfflineKeyV2:   spctag.HasCapability(container.Data.ClientCapabilities, spctag.CapabilityOfflineKeyV2Supported),
		ReturnCKC:              !req.CheckIn,
	}
	if req.AssetInfo.OfflineHLS != nil {
		streamID, err := hex.DecodeString(req.AssetInfo.OfflineHLS.StreamID)
		if err != nil {
			return fail(fpserrors.CodeParamErr)
		}
		titleID, err := hex.DecodeString(req.AssetInfo.OfflineHLS.TitleID)
		if err != nil {
			return fail(fpserrors.CodeParamErr)
		}
		ckcData.StreamID = streamID
		ckcData.TitleID = titleID
	}

	ckcBytes, err := ckc.Build(container.Version, container.SessionKey, ckcData)
	if err != nil {
		return fail(fpserrors.CodeOf(err))
	}

	op := result.Operation{
		ID:             req.ID,
		Status:         fpserrors.CodeOK,
		HU:             bindResp.HU,
		CKC:            ckcBytes,
		IsCheckIn:      req.CheckIn,
		DeviceIdentity: container.Data.DeviceIdentity,
		VMDeviceInfo:   container.Data.VMDeviceInfo,
	}
	if req.CheckIn && container.Data.OfflineSync != nil {
		sync := container.Data.OfflineSync
		op.CheckIn = &result.CheckIn{
			ServerChallenge:  sync.ServerChallenge,
			Flags:            sync.Flags,
			DurationLeft:     sync.Duration,
			TitleID:          sync.TitleID,
			DeletedStreamIDs: sync.DeletedContentIDs,
		}
	}
	return op
}

func toPolicyAssetInfo(a assetInfo) (policy.AssetInfo, error) {
	var hdcp spctag.HDCPRequirement
	switch a.HDCPType {
	case 0:
		hdcp = spctag.HDCPNotRequired
	case 1:
		hdcp = spctag.HDCPType0
	case 2:
		hdcp = spctag.HDCPType1
	default:
		return policy.AssetInfo{}, fpserrors.New(fpserrors.CodeParamErr)
	}

	var ct policy.ContentType
	switch a.ContentType {
	case "uhd":
		ct = policy.ContentTypeUHD
	case "hd":
		ct = policy.ContentTypeHD
	case "sd":
		ct = policy.ContentTypeSD
	case "audio":
		ct = policy.ContentTypeAudio
	default:
		ct = policy.ContentTypeUnknown
	}

	return policy.AssetInfo{
		HDCPReq:       hdcp,
		LeaseDuration: a.LeaseDuration,
		IsOfflineHLS:  a.OfflineHLS != nil,
		ContentType:   ct,
	}, nil
}

// deriveKeyDuration reconstructs the lease/rental/persistence key type
// from the asset-info durations per §4.H's decision table: offline-HLS
// assets persist (with a duration component whenever rental or
// playback is bounded), otherwise lease and rental compose, and an
// asset with neither carries no duration semantics.
func deriveKeyDuration(a assetInfo, asset policy.AssetInfo) ckc.KeyDuration {
	kd := ckc.KeyDuration{
		LeaseDuration:    a.LeaseDuration,
		RentalDuration:   a.RentalDuration,
		PlaybackDuration: a.PlaybackDuration,
	}
	hasLease := a.LeaseDuration != spctag.NoLeaseDuration
	switch {
	case asset.IsOfflineHLS:
		if a.RentalDuration != 0 || a.PlaybackDuration != 0 {
			kd.KeyType = spctag.KeyDurationPersistenceAndDuration
		} else {
			kd.KeyType = spctag.KeyDurationPersistence
		}
	case hasLease && a.RentalDuration != 0:
		kd.KeyType = spctag.KeyDurationLeaseAndRental
	case hasLease:
		kd.KeyType = spctag.KeyDurationLease
	case a.RentalDuration != 0:
		kd.KeyType = spctag.KeyDurationRental
	default:
		kd.KeyType = spctag.KeyDurationNone
	}
	return kd
}

func decodeBase64(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}

func decodeHexExact(s string, n int) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	if len(b) != n {
		return nil, fmt.Errorf("batch: expected %d bytes, got %d", n, len(b))
	}
	return b, nil
}

// Package spc orchestrates SPC envelope unwrap, TLLV decode, and per-tag
// dispatch into a single parsed SPC container — component E of the
// pipeline, calling down into bytesutil/tllv/spctag/envelope (B-D).
package spc

import (
	"encoding/binary"

	"github.com/barnettlynn/fpsckc/internal/credentials"
	"github.com/barnettlynn/fpsckc/internal/envelope"
	"github.com/barnettlynn/fpsckc/internal/fpserrors"
	"github.com/barnettlynn/fpsckc/internal/spctag"
	"github.com/barnettlynn/fpsckc/internal/tllv"
)

const (
	headerIVOffset = 8
	headerIVSize   = 16
	headerFixedSize = 4 + 4 + headerIVSize // version + reserved + IV
	certHashSize   = 20
)

// Data holds every field the SPC container can carry, per the data model
// in §3: nonces, asset identity, capability reports, device identity,
// the optional check-in block, and the parser's duplicate-tag state is
// handled entirely inside tllv.ParseAll before this package ever sees a
// record.
type Data struct {
	SessionKeyR1          []byte
	SessionKeyR1Integrity []byte
	R2                    []byte
	AntiReplay            []byte

	AssetID              []byte
	TransactionID        uint64
	VersionUsed          uint32
	VersionsSupported    []uint32
	ReturnRequest        []byte
	StreamingIndicator   uint64
	PlayInfo             *spctag.PlayInfo

	ClientCapabilities uint64

	DeviceInfo     *spctag.DeviceInfo
	DeviceIdentity *spctag.DeviceIdentity
	VMDeviceInfo   *spctag.VMDeviceInfo

	OfflineSync *spctag.OfflineSync

	SecurityLevelReport      *spctag.SecurityLevelReport
	ClientKextDenyListVersion uint32

	SupportedKeyFormats []spctag.KeyFormat
}

// Container is the transient result of parsing one SPC: the envelope
// metadata plus the decoded tag data.
type Container struct {
	Version    envelope.Version
	CertHash   []byte
	SessionKey []byte // the unwrapped per-request AES key
	Data       Data
}

// requiredTags are rejected as MissingRequiredTagErr when absent after
// the whole buffer has been consumed, per §4.E step 6.
var requiredTags = []spctag.Tag{
	spctag.TagSessionKeyR1,
	spctag.TagSessionKeyR1Integrity,
	spctag.TagR2,
	spctag.TagAntiReplay,
	spctag.TagProtocolVersionUsed,
	spctag.TagAssetID,
}

// Parse runs §4.E's full sequence: version check, header parse, RSA
// unwrap, AES decrypt, TLLV decode, per-tag dispatch, and the
// required-tag cross-check.
func Parse(raw []byte, creds credentials.Provider) (*Container, error) {
	if len(raw) < 4 {
		return nil, fpserrors.New(fpserrors.CodeSPCVersionErr)
	}
	version := envelope.Version(binary.BigEndian.Uint32(raw[0:4]))
	if version != envelope.V1 && version != envelope.V2 {
		return nil, fpserrors.New(fpserrors.CodeSPCVersionErr)
	}

	wrappedKeySize := spctag.WrappedKeyV1Size
	if version == envelope.V2 {
		wrappedKeySize = spctag.WrappedKeyV2Size
	}
	need := headerFixedSize + wrappedKeySize + certHashSize
	if len(raw) < need {
		return nil, fpserrors.New(fpserrors.CodeParserErr)
	}

	iv := raw[headerIVOffset : headerIVOffset+headerIVSize]
	wrapped := raw[headerFixedSize : headerFixedSize+wrappedKeySize]
	certHash := raw[headerFixedSize+wrappedKeySize : need]
	encryptedPayload := raw[need:]

	priv, err := creds.PrivateKey(version)
	if err != nil {
		return nil, fpserrors.Wrap(fpserrors.CodeInternalErr, err)
	}
	sessionKey, err := envelope.UnwrapSessionKey(priv, version, wrapped)
	if err != nil {
		return nil, err
	}

	payload, err := envelope.DecryptCBC(sessionKey, iv, encryptedPayload)
	if err != nil {
		return nil, err
	}

	records, err := tllv.ParseAll(payload)
	if err != nil {
		return nil, err
	}

	c := &Container{
		Version:    version,
		CertHash:   append([]byte(nil), certHash...),
		SessionKey: sessionKey,
	}
	if err := c.dispatchAll(records); err != nil {
		return nil, err
	}
	if err := c.checkRequiredTags(records); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Container) checkRequiredTags(records []tllv.Record) error {
	for _, req := range requiredTags {
		if _, ok := tllv.Find(records, uint64(req)); !ok {
			return fpserrors.New(fpserrors.CodeMissingRequiredTagErr)
		}
	}
	return nil
}

// dispatchAll mirrors base_parse_tllv.rs's match arms: a known tag is
// decoded into Data, an unknown tag is silently ignored (the extension
// hook's no-op default, see §9 ProtocolExtension).
func (c *Container) dispatchAll(records []tllv.Record) error {
	for _, r := range records {
		if err := c.dispatchOne(r); err != nil {
			return err
		}
	}
	return nil
}

func (c *Container) dispatchOne(r tllv.Record) error {
	d := &c.Data
	switch spctag.Tag(r.Tag) {
	case spctag.TagSessionKeyR1:
		v, err := spctag.ParseSessionKeyR1(r.Value)
		d.SessionKeyR1 = v
		return err
	case spctag.TagSessionKeyR1Integrity:
		v, err := spctag.ParseSessionKeyR1Integrity(r.Value)
		d.SessionKeyR1Integrity = v
		return err
	case spctag.TagAntiReplay:
		v, err := spctag.ParseAntiReplay(r.Value)
		d.AntiReplay = v
		return err
	case spctag.TagR2:
		v, err := spctag.ParseR2(r.Value)
		d.R2 = v
		return err
	case spctag.TagReturnRequest:
		d.ReturnRequest = append([]byte(nil), r.Value...)
		return nil
	case spctag.TagAssetID:
		v, err := spctag.ParseAssetID(r.Value)
		d.AssetID = v
		return err
	case spctag.TagTransactionID:
		v, err := spctag.ParseTransactionID(r.Value)
		d.TransactionID = v
		return err
	case spctag.TagProtocolVersionsSupport:
		v, err := spctag.ParseProtocolVersionsSupported(r.Value)
		d.VersionsSupported = v
		return err
	case spctag.TagProtocolVersionUsed:
		v, err := spctag.ParseProtocolVersionUsed(r.Value)
		d.VersionUsed = v
		return err
	case spctag.TagStreamingIndicator:
		v, err := spctag.ParseStreamingIndicator(r.Value)
		d.StreamingIndicator = v
		return err
	case spctag.TagMediaPlaybackState:
		v, err := spctag.ParseMediaPlaybackState(r.Value)
		d.PlayInfo = v
		return err
	case spctag.TagCapabilities:
		v, err := spctag.ParseClientCapabilities(r.Value)
		d.ClientCapabilities = v
		return err
	case spctag.TagDeviceInfo:
		v, err := spctag.ParseDeviceInfo(r.Value)
		d.DeviceInfo = v
		return err
	case spctag.TagDeviceIdentity:
		v, err := spctag.ParseDeviceIdentity(r.Value)
		d.DeviceIdentity = v
		return err
	case spctag.TagOfflineSync:
		v, err := spctag.ParseOfflineSync(r.Value)
		d.OfflineSync = v
		return err
	case spctag.TagSupportedKeyFormat:
		v, err := spctag.ParseSupportedKeyFormat(r.Value)
		d.SupportedKeyFormats = v
		return err
	case spctag.TagSecurityLevelReport:
		if len(r.Value) != spctag.EncryptedSecurityLevelReportSize {
			return fpserrors.New(fpserrors.CodeParamErr)
		}
		plain, err := envelope.DecryptECB(c.SessionKey, r.Value)
		if err != nil {
			return err
		}
		v, err := spctag.ParseSecurityLevelReport(plain[:12])
		d.SecurityLevelReport = v
		return err
	case spctag.TagKDLVersionReport:
		v, err := spctag.ParseKDLVersionReport(r.Value)
		d.ClientKextDenyListVersion = v
		return err
	case spctag.TagVMDeviceInfo:
		v, err := spctag.ParseVMDeviceInfo(r.Value)
		d.VMDeviceInfo = v
		return err
	default:
		return nil
	}
}

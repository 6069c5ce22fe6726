// Package binder wraps the opaque native KSMCreateKeyPayload routine
// behind a safe Go interface.
//
// The shape — a single-method abstraction over an external routine,
// called through a thin Go function rather than inline at every call
// site — is the same one pkg/ntag424/card.go uses for the PC/SC Card
// interface (Transmit(apdu []byte) ([]byte, error)); here it is applied
// to an opaque cryptographic routine instead of a smart card, per the
// design note in SPEC_FULL.md on dropping the scard dependency. The
// field layout and semantics are grounded on createContentKeyPayload.rs
// and the KSMKeyPayload struct in base_fps_structures.rs.
package binder

import (
	"github.com/barnettlynn/fpsckc/internal/fpserrors"
	"github.com/barnettlynn/fpsckc/internal/spctag"
)

// MaxContentKeyTLLVPayload bounds the output buffer the adapter
// allocates for the content-key TLLV payload.
const MaxContentKeyTLLVPayload = 1024

// ContentType is the 3-way content classification
// KSMCreateKeyPayload actually accepts (unknown/video/audio) — every
// video-shaped policy.ContentType (SD/HD/UHD) collapses to video here,
// exactly as createContentKeyPayload.rs does.
type ContentType uint64

const (
	ContentTypeUnknown ContentType = 0
	ContentTypeVideo   ContentType = 1
	ContentTypeAudio   ContentType = 3
)

// Request carries every field the native routine needs, already
// extracted from the SPC container and the operation's asset info.
type Request struct {
	ContentKey []byte // 16 bytes
	ContentIV  []byte // 16 bytes
	ContentType ContentType

	SKR1          []byte
	R2            []byte
	R1Integrity   []byte
	SupportedKeyFormats []spctag.KeyFormat
	CryptoVersionUsed   uint32
	ProvisioningData    []byte
	CertHash            []byte
}

// Response is what the native routine hands back: the content-key TLLV
// tag+payload, R1, and the client's hardware-unique identifier.
type Response struct {
	ContentKeyTLLVTag     uint64
	ContentKeyTLLVPayload []byte
	R1                    []byte
	HU                    []byte
}

// Binder invokes the opaque key-payload routine. Native is the seam a
// real deployment would wire to the precompiled cryptographic library;
// this package only defines the adapter contract around it.
type Binder interface {
	CreateKeyPayload(req Request) (Response, error)
}

// Native is the function signature of the underlying (out of scope,
// precompiled) KSMCreateKeyPayload call. A real binary supplies one;
// tests supply a fake.
type Native func(req Request) (Response, error)

// Adapter is the safe wrapper: it applies the defaulting and
// post-call validation createContentKeyPayload.rs performs around the
// raw FFI call, so callers never see a zero-length or oversized
// payload.
type Adapter struct {
	call Native
}

func NewAdapter(call Native) *Adapter {
	return &Adapter{call: call}
}

// CreateKeyPayload substitutes the legacy 16-byte key format when the
// client reported none, invokes the native routine, and validates the
// returned payload length.
func (a *Adapter) CreateKeyPayload(req Request) (Response, error) {
	if len(req.SupportedKeyFormats) == 0 {
		req.SupportedKeyFormats = []spctag.KeyFormat{spctag.LegacyKeyFormat16Byte}
	}

	resp, err := a.call(req)
	if err != nil {
		return Response{}, fpserrors.Wrap(fpserrors.CodeInternalErr, err)
	}
	if len(resp.ContentKeyTLLVPayload) > MaxContentKeyTLLVPayload {
		return Response{}, fpserrors.New(fpserrors.CodeInternalErr)
	}
	if len(resp.ContentKeyTLLVPayload) <= 16 {
		// The routine must return more than just a bare AES-128 key
		// (it wraps it); anything else signals an internal failure,
		// mirroring createContentKeyPayload.rs's post-call check.
		return Response{}, fpserrors.New(fpserrors.CodeInternalErr)
	}
	return resp, nil
}

// VideoContentType maps any of the video-shaped content classes to the
// binder's single "video" content type.
func VideoContentType(sd, hd, uhd bool) ContentType {
	if sd || hd || uhd {
		return ContentTypeVideo
	}
	return ContentTypeUnknown
}

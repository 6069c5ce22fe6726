package binder

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/barnettlynn/fpsckc/internal/fpserrors"
	"github.com/barnettlynn/fpsckc/internal/spctag"
)

func fixedResponse(payloadLen int) Native {
	return func(req Request) (Response, error) {
		return Response{
			ContentKeyTLLVTag:     0x1234,
			ContentKeyTLLVPayload: make([]byte, payloadLen),
			R1:                    make([]byte, 44),
			HU:                    make([]byte, 20),
		}, nil
	}
}

func TestCreateKeyPayloadSubstitutesLegacyKeyFormatWhenNoneReported(t *testing.T) {
	var seen Request
	adapter := NewAdapter(func(req Request) (Response, error) {
		seen = req
		return Response{ContentKeyTLLVPayload: make([]byte, 32)}, nil
	})

	_, err := adapter.CreateKeyPayload(Request{})
	require.NoError(t, err)
	require.Equal(t, []spctag.KeyFormat{spctag.LegacyKeyFormat16Byte}, seen.SupportedKeyFormats)
}

func TestCreateKeyPayloadPreservesReportedKeyFormats(t *testing.T) {
	var seen Request
	adapter := NewAdapter(func(req Request) (Response, error) {
		seen = req
		return Response{ContentKeyTLLVPayload: make([]byte, 32)}, nil
	})

	formats := []spctag.KeyFormat{0xabc}
	_, err := adapter.CreateKeyPayload(Request{SupportedKeyFormats: formats})
	require.NoError(t, err)
	require.Equal(t, formats, seen.SupportedKeyFormats)
}

func TestCreateKeyPayloadRejectsOversizedPayload(t *testing.T) {
	adapter := NewAdapter(fixedResponse(MaxContentKeyTLLVPayload + 1))
	_, err := adapter.CreateKeyPayload(Request{})
	require.True(t, fpserrors.Is(err, fpserrors.CodeInternalErr))
}

func TestCreateKeyPayloadRejectsUndersizedPayload(t *testing.T) {
	adapter := NewAdapter(fixedResponse(8))
	_, err := adapter.CreateKeyPayload(Request{})
	require.True(t, fpserrors.Is(err, fpserrors.CodeInternalErr))
}

func TestCreateKeyPayloadPropagatesNativeError(t *testing.T) {
	adapter := NewAdapter(func(req Request) (Response, error) {
		return Response{}, errBoom
	})
	_, err := adapter.CreateKeyPayload(Request{})
	require.True(t, fpserrors.Is(err, fpserrors.CodeInternalErr))
}

func TestVideoContentType(t *testing.T) {
	require.Equal(t, ContentTypeVideo, VideoContentType(true, false, false))
	require.Equal(t, ContentTypeVideo, VideoContentType(false, true, false))
	require.Equal(t, ContentTypeVideo, VideoContentType(false, false, true))
	require.Equal(t, ContentTypeUnknown, VideoContentType(false, false, false))
}

var errBoom = fakeErr("boom")

type fakeErr string

func (e fakeErr) Error() string { return string(e) }

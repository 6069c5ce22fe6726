package ckc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/barnettlynn/fpsckc/internal/envelope"
	"github.com/barnettlynn/fpsckc/internal/spctag"
	"github.com/barnettlynn/fpsckc/internal/tllv"
)

func baseData() Data {
	return Data{
		R1:                    make([]byte, 44),
		ContentKeyTLLVTag:     uint64(spctag.TagSupportedKeyFormat),
		ContentKeyTLLVPayload: make([]byte, 32),
		RequiredSecurityLevel: spctag.SecurityLevelMain,
		HDCPTypeTLLVValue:     spctag.HDCPType1,
		ReturnRequest:         []byte("req"),
		ReturnCKC:             true,
	}
}

func TestBuildReturnsNilWhenReturnCKCIsFalse(t *testing.T) {
	d := baseData()
	d.ReturnCKC = false

	out, err := Build(envelope.V1, make([]byte, 16), d)
	require.NoError(t, err)
	require.Nil(t, out)
}

func TestBuildEmitsRecordsInSpecOrderAndIsDecryptable(t *testing.T) {
	key := make([]byte, 16)
	d := baseData()
	d.KeyDuration = KeyDuration{KeyType: spctag.KeyDurationLease, LeaseDuration: 600}

	out, err := Build(envelope.V1, key, d)
	require.NoError(t, err)
	require.Greater(t, len(out), 4+16)

	iv := out[4:20]
	body, err := envelope.DecryptCBC(key, iv, out[20:])
	require.NoError(t, err)

	records, err := tllv.ParseAll(body)
	require.NoError(t, err)

	wantOrder := []uint64{
		uint64(spctag.TagReturnRequest),
		d.ContentKeyTLLVTag,
		uint64(spctag.TagR1),
		uint64(spctag.TagKeyDuration),
		uint64(spctag.TagHDCPInformation),
		uint64(spctag.TagSecurityLevel),
	}
	require.Len(t, records, len(wantOrder))
	for i, tag := range wantOrder {
		require.Equal(t, tag, records[i].Tag, "record %d", i)
	}
}

func TestBuildUsesOfflineKeyTLLVWhenPersistenceAndClientSupportsIt(t *testing.T) {
	key := make([]byte, 16)
	d := baseData()
	d.KeyDuration = KeyDuration{KeyType: spctag.KeyDurationPersistence}
	d.SupportsOfflineKeyTLLV = true

	out, err := Build(envelope.V1, key, d)
	require.NoError(t, err)

	iv := out[4:20]
	body, err := envelope.DecryptCBC(key, iv, out[20:])
	require.NoError(t, err)
	records, err := tllv.ParseAll(body)
	require.NoError(t, err)

	_, ok := tllv.Find(records, uint64(spctag.TagOfflineKey))
	require.True(t, ok)
	_, ok = tllv.Find(records, uint64(spctag.TagKeyDuration))
	require.False(t, ok)
}

package tllv

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/barnettlynn/fpsckc/internal/fpserrors"
)

func TestBuildThenParseAllRoundTrips(t *testing.T) {
	rec1, err := Build(0x1111111111111111, []byte("hello"), 3)
	require.NoError(t, err)
	rec2, err := Build(0x2222222222222222, []byte("world!!!"), 0)
	require.NoError(t, err)

	records, err := ParseAll(append(rec1, rec2...))
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, uint64(0x1111111111111111), records[0].Tag)
	require.Equal(t, []byte("hello"), records[0].Value)
	require.Equal(t, []byte("world!!!"), records[1].Value)
}

func TestParseAllRejectsDuplicateTags(t *testing.T) {
	rec, err := Build(0xaaaaaaaaaaaaaaaa, []byte("x"), 0)
	require.NoError(t, err)

	_, err = ParseAll(append(append([]byte{}, rec...), rec...))
	require.True(t, fpserrors.IsDupTagErr(err))
}

func TestParseAllRejectsTruncatedHeader(t *testing.T) {
	_, err := ParseAll([]byte{1, 2, 3})
	require.True(t, fpserrors.Is(err, fpserrors.CodeParserErr))
}

func TestParseAllRejectsValueLengthExceedingTotalLength(t *testing.T) {
	buf := make([]byte, 16)
	buf[11] = 4 // total length 4
	buf[15] = 8 // value length 8 > total length
	_, err := ParseAll(buf)
	require.True(t, fpserrors.Is(err, fpserrors.CodeParserErr))
}

func TestBuildAlignedPadsToBlockBoundary(t *testing.T) {
	out, err := BuildAligned(0x3333333333333333, []byte("13bytes!!!!!!"), 16)
	require.NoError(t, err)
	require.Zero(t, len(out)%16)
}

func TestFind(t *testing.T) {
	rec, err := Build(0x9999999999999999, []byte("v"), 0)
	require.NoError(t, err)
	records, err := ParseAll(rec)
	require.NoError(t, err)

	found, ok := Find(records, 0x9999999999999999)
	require.True(t, ok)
	require.Equal(t, []byte("v"), found.Value)

	_, ok = Find(records, 0)
	require.False(t, ok)
}

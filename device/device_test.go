package device

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMem_RoundTrip(t *testing.T) {
	t.Parallel()

	d := NewMem(32)
	ctx := context.Background()

	// Unwritten blocks read as zeroes.
	p := bytes.Repeat([]byte{0xFF}, 32)
	require.NoError(t, d.ReadBlock(ctx, 3, p))
	assert.Equal(t, make([]byte, 32), p)

	src := bytes.Repeat([]byte{0x5A}, 32)
	require.NoError(t, d.WriteBlock(ctx, 3, src))

	got := make([]byte, 32)
	require.NoError(t, d.ReadBlock(ctx, 3, got))
	assert.Equal(t, src, got)

	reads, writes := d.Stats()
	assert.Equal(t, int64(2), reads)
	assert.Equal(t, int64(1), writes)
}

func TestMem_CopiesOnWrite(t *testing.T) {
	t.Parallel()

	d := NewMem(8)
	ctx := context.Background()

	src := []byte("abcdefgh")
	require.NoError(t, d.WriteBlock(ctx, 0, src))
	src[0] = 'X' // must not leak into the device

	got := make([]byte, 8)
	require.NoError(t, d.ReadBlock(ctx, 0, got))
	assert.Equal(t, []byte("abcdefgh"), got)
}

func TestMem_RejectsWrongSize(t *testing.T) {
	t.Parallel()

	d := NewMem(16)
	ctx := context.Background()
	assert.Error(t, d.ReadBlock(ctx, 0, make([]byte, 8)))
	assert.Error(t, d.WriteBlock(ctx, 0, make([]byte, 32)))
}

func TestFile_RoundTripAndReopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "blocks.img")
	ctx := context.Background()

	d, err := OpenFile(path, 64)
	require.NoError(t, err)

	src := bytes.Repeat([]byte{0xA5}, 64)
	require.NoError(t, d.WriteBlock(ctx, 7, src))
	require.NoError(t, d.Close())

	// Content persists across reopen.
	d, err = OpenFile(path, 64)
	require.NoError(t, err)
	defer d.Close()

	got := make([]byte, 64)
	require.NoError(t, d.ReadBlock(ctx, 7, got))
	assert.Equal(t, src, got)

	// Blocks before the written one are holes: all zeroes.
	require.NoError(t, d.ReadBlock(ctx, 3, got))
	assert.Equal(t, make([]byte, 64), got)

	// Blocks past the end of the file read as zeroes too.
	require.NoError(t, d.ReadBlock(ctx, 100, got))
	assert.Equal(t, make([]byte, 64), got)
}

func TestFaulty_InjectsAfterThreshold(t *testing.T) {
	t.Parallel()

	d := NewFaulty(NewMem(16))
	d.FailReadAfter = 2
	ctx := context.Background()

	p := make([]byte, 16)
	require.NoError(t, d.ReadBlock(ctx, 0, p))
	require.NoError(t, d.ReadBlock(ctx, 1, p))
	err := d.ReadBlock(ctx, 2, p)
	require.ErrorIs(t, err, ErrInjected)

	// Writes are not affected by the read rule.
	require.NoError(t, d.WriteBlock(ctx, 0, p))
}

// ABOUTME: Tests for the Badger slot store
// ABOUTME: Covers grouped writes, missing slots and reopening from disk
package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotsRoundTrip(t *testing.T) {
	b, err := OpenInMemory()
	require.NoError(t, err)
	defer func() { _ = b.Close() }()

	got, err := b.Load(SlotToken, SlotUser)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, b.Store(map[string][]byte{
		SlotToken: []byte("T1"),
		SlotUser:  []byte(`{"id":1,"name":"A"}`),
	}))

	got, err = b.Load(SlotToken, SlotUser, SlotDeviceID)
	require.NoError(t, err)
	assert.Equal(t, "T1", string(got[SlotToken]))
	assert.JSONEq(t, `{"id":1,"name":"A"}`, string(got[SlotUser]))
	_, ok := got[SlotDeviceID]
	assert.False(t, ok)

	require.NoError(t, b.Remove(SlotToken, SlotUser, SlotDeviceID))
	got, err = b.Load(SlotToken, SlotUser)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSlotsSurviveReopen(t *testing.T) {
	dir := t.TempDir()

	b, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, b.Store(map[string][]byte{SlotDeviceID: []byte("01HZX")}))
	require.NoError(t, b.Close())

	b, err = Open(dir)
	require.NoError(t, err)
	defer func() { _ = b.Close() }()

	got, err := b.Load(SlotDeviceID)
	require.NoError(t, err)
	assert.Equal(t, "01HZX", string(got[SlotDeviceID]))
}

func TestTwoStoresShareOneDir(t *testing.T) {
	dir := t.TempDir()

	server, err := Open(dir)
	require.NoError(t, err)
	defer func() { _ = server.Close() }()

	cli, err := Open(dir)
	require.NoError(t, err)
	defer func() { _ = cli.Close() }()

	require.NoError(t, cli.Store(map[string][]byte{SlotToken: []byte("T2")}))

	got, err := server.Load(SlotToken)
	require.NoError(t, err)
	assert.Equal(t, "T2", string(got[SlotToken]))

	require.NoError(t, server.Remove(SlotToken))
	got, err = cli.Load(SlotToken)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestClosedStoreRejectsOperations(t *testing.T) {
	b, err := Open(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, b.Close())
	require.NoError(t, b.Close())

	_, err = b.Load(SlotToken)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, b.Store(map[string][]byte{SlotToken: []byte("x")}), ErrClosed)
}

package gpio

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockDriver_RecordsWrites(t *testing.T) {
	d := NewMockDriver()
	require.NoError(t, d.SetupPin(24, Output))
	require.NoError(t, d.WritePin(24, Low))
	require.NoError(t, d.WritePin(24, High))

	assert.Equal(t, []Write{{24, Low}, {24, High}}, d.Writes())

	lvl, err := d.ReadPin(24)
	require.NoError(t, err)
	assert.Equal(t, High, lvl)
}

func TestMockDriver_Reset(t *testing.T) {
	d := NewMockDriver()
	require.NoError(t, d.WritePin(5, High))
	d.Reset()
	assert.Empty(t, d.Writes())

	lvl, _ := d.ReadPin(5)
	assert.Equal(t, High, lvl, "reset keeps levels")
}

func TestMockDriver_Closed(t *testing.T) {
	d := NewMockDriver()
	require.NoError(t, d.Close())
	assert.Error(t, d.WritePin(1, High))
	assert.Error(t, d.SetupPin(1, Output))
}

func TestMockDriver_Concurrent(t *testing.T) {
	d := NewMockDriver()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(pin int) {
			defer wg.Done()
			_ = d.WritePin(pin, High)
		}(i)
	}
	wg.Wait()
	assert.Len(t, d.Writes(), 20)
}

func TestNewDriver_Mock(t *testing.T) {
	d, err := NewDriver(true)
	require.NoError(t, err)
	_, ok := d.(*MockDriver)
	assert.True(t, ok)
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "HIGH", High.String())
	assert.Equal(t, "LOW", Low.String())
}

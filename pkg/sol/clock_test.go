package sol

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	data := make([]byte, ClockAccountDataSize)
	binary.LittleEndian.PutUint64(data[0:8], 312_000_123)
	binary.LittleEndian.PutUint64(data[8:16], 1_717_000_000)
	binary.LittleEndian.PutUint64(data[16:24], 722)
	binary.LittleEndian.PutUint64(data[24:32], 723)
	binary.LittleEndian.PutUint64(data[32:40], 1_717_100_000)

	clock, err := ParseClock(data)
	require.NoError(t, err)
	assert.Equal(t, &Clock{
		Slot:                312_000_123,
		EpochStartTime:      1_717_000_000,
		Epoch:               722,
		LeaderScheduleEpoch: 723,
		UnixTimestamp:       1_717_100_000,
	}, clock)
}

func TestParseClockRejectsWrongLength(t *testing.T) {
	for _, size := range []int{0, 24, ClockAccountDataSize + 1} {
		_, err := ParseClock(make([]byte, size))
		assert.Error(t, err, "size %d", size)
	}
}

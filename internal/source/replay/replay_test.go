package replay

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mbo-features/internal/event"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "events.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestSourceDecodesRowsInOrder(t *testing.T) {
	path := writeTemp(t, "timestamp_ns,instrument,action,side,price,size,order_id,flags,instrument_id,channel_id,sequence\n"+
		"100,ES,A,B,5000.25,10,1,0,4916,1,1\n"+
		"200,ES,T,S,5000.50,3,0,0,4916,1,2\n")
	src, err := Open(path)
	require.NoError(t, err)
	defer src.Close()

	ev1, err := src.Next()
	require.NoError(t, err)
	assert.Equal(t, uint64(100), ev1.TimestampNs)
	assert.Equal(t, "ES", ev1.Instrument)
	assert.Equal(t, event.Add, ev1.Action)
	assert.Equal(t, event.Bid, ev1.Side)
	assert.Equal(t, 5000.25, ev1.Price)
	assert.Equal(t, uint64(10), ev1.Size)
	assert.Equal(t, uint64(1), ev1.OrderID)
	assert.Equal(t, int64(4916), ev1.InstrumentID)

	ev2, err := src.Next()
	require.NoError(t, err)
	assert.Equal(t, event.Trade, ev2.Action)
	assert.Equal(t, event.Ask, ev2.Side)

	_, err = src.Next()
	assert.ErrorIs(t, err, event.ErrEndOfStream)
}

func TestSourceSkippableDecodeError(t *testing.T) {
	path := writeTemp(t, "timestamp_ns,instrument,action,side,price,size,order_id,flags,instrument_id,channel_id,sequence\n"+
		"notanumber,ES,A,B,5000.25,10,1,0,4916,1,1\n"+
		"200,ES,A,B,5000.25,10,2,0,4916,1,2\n")
	src, err := Open(path)
	require.NoError(t, err)
	defer src.Close()

	_, err = src.Next()
	var decErr *event.DecodeError
	require.ErrorAs(t, err, &decErr)

	ev, err := src.Next()
	require.NoError(t, err)
	assert.Equal(t, uint64(200), ev.TimestampNs)
}

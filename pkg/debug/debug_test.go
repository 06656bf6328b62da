package debug

import (
	"bytes"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStopwatch(t *testing.T) {
	sw := NewStopwatch()
	time.Sleep(time.Millisecond)
	sw.Lap("read")
	sw.Lap("build")

	timings := sw.Timings()
	require.Len(t, timings, 2)
	assert.Equal(t, "read", timings[0].Name)
	assert.GreaterOrEqual(t, timings[0].Duration, time.Millisecond)
	assert.Equal(t, timings[0].Duration+timings[1].Duration, sw.Total())

	var buf bytes.Buffer
	TimingReport(&buf, "cpu.folded", timings)
	assert.Contains(t, buf.String(), "cpu.folded")
	assert.Contains(t, buf.String(), "build")
	assert.Contains(t, buf.String(), "TOTAL")
}

func TestStartPprofServer(t *testing.T) {
	addr, stop, err := StartPprofServer("127.0.0.1:0", nil)
	require.NoError(t, err)
	defer stop()

	resp, err := http.Get(fmt.Sprintf("http://%s/debug/pprof/", addr))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

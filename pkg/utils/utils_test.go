package utils

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRespondError(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, 400, "bad")

	require.Equal(t, 400, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.JSONEq(t, `{"error":"bad"}`, rec.Body.String())
}

func TestSendSSEEvent(t *testing.T) {
	rec := httptest.NewRecorder()
	SetupSSEHeaders(rec)
	require.NoError(t, SendSSEEvent(rec, rec, "snapshot", map[string]int{"n": 1}))
	require.NoError(t, SendSSEComment(rec, rec, "ping"))

	require.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	require.Equal(t, "event: snapshot\ndata: {\"n\":1}\n\n: ping\n\n", rec.Body.String())
	require.True(t, rec.Flushed)
}

func TestSendSSEEventMarshalError(t *testing.T) {
	rec := httptest.NewRecorder()
	err := SendSSEEvent(rec, rec, "bad", make(chan int))
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "marshal sse event"))
	require.Empty(t, rec.Body.String())
}

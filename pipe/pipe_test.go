package pipe

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSendRecvOrder(t *testing.T) {
	p := New(16)
	require.True(t, p.Send([]byte("a")))
	require.True(t, p.Send([]byte("b")))

	v, ok := p.Recv()
	require.True(t, ok)
	require.Equal(t, []byte("a"), v)

	v, ok = p.Recv()
	require.True(t, ok)
	require.Equal(t, []byte("b"), v)
}

func TestCloseDrainsQueue(t *testing.T) {
	p := New(16)
	require.True(t, p.Send([]byte("a")))
	p.Close(nil)

	v, ok := p.Recv()
	require.True(t, ok)
	require.Equal(t, []byte("a"), v)

	_, ok = p.Recv()
	require.False(t, ok)
}

func TestOversizedChunkDoesNotDeadlock(t *testing.T) {
	p := New(4)
	big := make([]byte, 1024)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		require.True(t, p.Send(big))
	}()

	v, ok := p.Recv()
	require.True(t, ok)
	require.Len(t, v, 1024)
	wg.Wait()
}

func TestErrPropagation(t *testing.T) {
	p := New(16)
	sentinel := errFoo{}
	p.Close(sentinel)
	require.Equal(t, sentinel, p.Err())
}

type errFoo struct{}

func (errFoo) Error() string { return "foo" }

// SPDX-License-Identifier: GPL-3.0-or-later

package dataflow

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/pktflow-project/pktflow/packet"
	"github.com/pktflow-project/pktflow/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func mustConnect(t *testing.T, links Links, from, to PortID) {
	t.Helper()
	require.NoError(t, links.Connect(from, to))
}

func TestQueue(t *testing.T) {
	q := &Queue{}
	assert.True(t, q.Empty())
	assert.Nil(t, q.Pop())
	assert.Nil(t, q.Peek())

	for idx := range 200 {
		q.Push(packet.New(nil, int64(idx)))
	}
	for idx := range 150 {
		assert.Equal(t, int64(idx), q.Peek().Timestamp)
		assert.Equal(t, int64(idx), q.Pop().Timestamp)
	}
	assert.Equal(t, 50, q.Len())
	q.Push(packet.New(nil, 200))

	rest := q.PopAll()
	require.Len(t, rest, 51)
	assert.Equal(t, int64(150), rest[0].Timestamp)
	assert.Equal(t, int64(200), rest[50].Timestamp)
	assert.True(t, q.Empty())
}

func TestChainPreservesFIFO(t *testing.T) {
	src, a, b, sink := newSourceNode(1, 5), newRelayNode(2, 1), newRelayNode(3, 1), newSinkNode(4)
	links := Links{}
	mustConnect(t, links, PortID{1, 0}, PortID{2, 0})
	mustConnect(t, links, PortID{2, 0}, PortID{3, 0})
	mustConnect(t, links, PortID{3, 0}, PortID{4, 0})

	proc, err := NewProcessor(map[int]Node{1: src, 2: a, 3: b, 4: sink}, links)
	require.NoError(t, err)
	require.NoError(t, proc.Run(context.Background()))

	assert.Equal(t, []int64{0, 1, 2, 3, 4}, sink.timestamps())
	assert.True(t, sink.tornDown)
	stats := proc.Stats()
	assert.Equal(t, uint64(5), stats[1].Emitted)
	assert.Equal(t, uint64(5), stats[2].Consumed)
	assert.Equal(t, uint64(5), stats[4].Consumed)
	assert.Equal(t, uint64(5), stats[4].Steps)
}

func TestProcessOnlyAfterIsReady(t *testing.T) {
	ctrl := gomock.NewController(t)
	mock := NewMockNode(ctrl)
	mock.EXPECT().ID().Return(2).AnyTimes()
	mock.EXPECT().NumInputs().Return(1).AnyTimes()
	mock.EXPECT().NumOutputs().Return(0).AnyTimes()
	mock.EXPECT().Setup(gomock.Any(), gomock.Any()).Return(nil)
	mock.EXPECT().Teardown().Return(nil)

	var lastReady bool
	mock.EXPECT().IsReady(gomock.Any()).DoAndReturn(func(inputs []*Queue) bool {
		lastReady = !inputs[0].Empty()
		return lastReady
	}).AnyTimes()
	mock.EXPECT().Process(gomock.Any(), gomock.Any()).DoAndReturn(
		func(inputs []*Queue, outputs [][]*packet.Packet) ([][]*packet.Packet, error) {
			assert.True(t, lastReady, "Process invoked without a preceding IsReady")
			lastReady = false
			inputs[0].Pop()
			return outputs, nil
		}).Times(3)

	links := Links{}
	mustConnect(t, links, PortID{1, 0}, PortID{2, 0})
	proc, err := NewProcessor(map[int]Node{1: newSourceNode(1, 3), 2: mock}, links)
	require.NoError(t, err)
	require.NoError(t, proc.Run(context.Background()))
}

func TestTerminationLeavesBlockedData(t *testing.T) {
	// the sink has two inputs but only one is fed, so it never runs
	sink := &twoInputSink{Base: NewBase(2, 2, 0)}
	links := Links{}
	mustConnect(t, links, PortID{1, 0}, PortID{2, 0})

	proc, err := NewProcessor(map[int]Node{1: newSourceNode(1, 4), 2: sink}, links)
	require.NoError(t, err)
	require.NoError(t, proc.Run(context.Background()))
	assert.Equal(t, 4, proc.State(2).Inputs[0].Len())
	assert.Equal(t, 0, sink.pairs)
}

type twoInputSink struct {
	Base
	pairs int
}

func (n *twoInputSink) IsReady(inputs []*Queue) bool {
	return !inputs[0].Empty() && !inputs[1].Empty()
}

func (n *twoInputSink) Process(inputs []*Queue, outputs [][]*packet.Packet) ([][]*packet.Packet, error) {
	inputs[0].Pop()
	inputs[1].Pop()
	n.pairs++
	return outputs, nil
}

func TestUnconnectedOutputsAreDiscarded(t *testing.T) {
	relay := newRelayNode(2, 2)
	sink := newSinkNode(3)
	links := Links{}
	mustConnect(t, links, PortID{1, 0}, PortID{2, 0})
	mustConnect(t, links, PortID{2, 1}, PortID{3, 0})

	proc, err := NewProcessor(map[int]Node{1: newSourceNode(1, 3), 2: relay, 3: sink}, links)
	require.NoError(t, err)
	require.NoError(t, proc.Run(context.Background()))
	assert.Len(t, sink.got, 3)
	assert.Empty(t, proc.State(2).Outputs[0])
}

func TestNodeFailures(t *testing.T) {
	t.Run("panic surfaces the node identity", func(t *testing.T) {
		relay := newRelayNode(2, 0)
		relay.explode = true
		links := Links{}
		mustConnect(t, links, PortID{1, 0}, PortID{2, 0})
		proc, err := NewProcessor(map[int]Node{1: newSourceNode(1, 1), 2: relay}, links)
		require.NoError(t, err)

		err = proc.Run(context.Background())
		assert.ErrorIs(t, err, ErrPanic)
		var nodeErr *NodeError
		require.True(t, errors.As(err, &nodeErr))
		assert.Equal(t, 2, nodeErr.NodeID)
		assert.Equal(t, "process", nodeErr.Op)
	})

	t.Run("process error aborts the run", func(t *testing.T) {
		mocked := errors.New("mocked error")
		relay := newRelayNode(2, 1)
		relay.fail = mocked
		sink := newSinkNode(3)
		links := Links{}
		mustConnect(t, links, PortID{1, 0}, PortID{2, 0})
		mustConnect(t, links, PortID{2, 0}, PortID{3, 0})
		proc, err := NewProcessor(map[int]Node{1: newSourceNode(1, 2), 2: relay, 3: sink}, links)
		require.NoError(t, err)

		err = proc.Run(context.Background())
		assert.ErrorIs(t, err, mocked)
		assert.Empty(t, sink.got)
		assert.True(t, sink.tornDown)
	})

	t.Run("teardown errors are joined", func(t *testing.T) {
		mocked := errors.New("teardown failed")
		sink := newSinkNode(2)
		sink.teardownFn = func() error { return mocked }
		links := Links{}
		mustConnect(t, links, PortID{1, 0}, PortID{2, 0})
		proc, err := NewProcessor(map[int]Node{1: newSourceNode(1, 1), 2: sink}, links)
		require.NoError(t, err)
		assert.ErrorIs(t, proc.Run(context.Background()), mocked)
	})
}

func TestNewProcessorValidation(t *testing.T) {
	type testCase struct {
		name  string
		nodes map[int]Node
		links Links
		err   error
	}
	cases := []testCase{{
		name:  "nil node",
		nodes: map[int]Node{1: nil},
		err:   ErrContract,
	}, {
		name:  "mismatched identifier",
		nodes: map[int]Node{1: newSinkNode(2)},
		err:   ErrContract,
	}, {
		name:  "negative ports",
		nodes: map[int]Node{1: &sinkNode{Base: NewBase(1, -1, 0)}},
		err:   ErrContract,
	}, {
		name:  "zero identifier",
		nodes: map[int]Node{0: newSinkNode(0)},
		err:   ErrContract,
	}, {
		name:  "negative identifier",
		nodes: map[int]Node{-3: newSourceNode(-3, 1), 1: newSinkNode(1)},
		err:   ErrContract,
	}, {
		name:  "unknown source",
		nodes: map[int]Node{1: newSinkNode(1)},
		links: Links{7: {0: {Node: 1, Port: 0}}},
		err:   ErrInvalidLink,
	}, {
		name:  "no such output",
		nodes: map[int]Node{1: newSourceNode(1, 1), 2: newSinkNode(2)},
		links: Links{1: {1: {Node: 2, Port: 0}}},
		err:   ErrInvalidLink,
	}, {
		name:  "unknown destination",
		nodes: map[int]Node{1: newSourceNode(1, 1)},
		links: Links{1: {0: {Node: 9, Port: 0}}},
		err:   ErrInvalidLink,
	}, {
		name:  "no such input",
		nodes: map[int]Node{1: newSourceNode(1, 1), 2: newSinkNode(2)},
		links: Links{1: {0: {Node: 2, Port: 3}}},
		err:   ErrInvalidLink,
	}}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			proc, err := NewProcessor(tc.nodes, tc.links)
			assert.ErrorIs(t, err, tc.err)
			assert.Nil(t, proc)
		})
	}

	t.Run("output connected twice", func(t *testing.T) {
		links := Links{}
		mustConnect(t, links, PortID{1, 0}, PortID{2, 0})
		assert.ErrorIs(t, links.Connect(PortID{1, 0}, PortID{3, 0}), ErrInvalidLink)
	})
}

func TestDriveHonorsContext(t *testing.T) {
	proc, err := NewProcessor(map[int]Node{1: newSourceNode(1, 1<<30)}, nil)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, proc.Run(ctx), context.Canceled)
}

func TestHooksAndDeterminism(t *testing.T) {
	trace := func() (order []int, enqueued int) {
		links := Links{}
		mustConnect(t, links, PortID{1, 0}, PortID{2, 0})
		mustConnect(t, links, PortID{2, 0}, PortID{3, 0})
		mustConnect(t, links, PortID{2, 1}, PortID{4, 0})
		nodes := map[int]Node{
			1: newSourceNode(1, 3),
			2: newRelayNode(2, 2),
			3: newSinkNode(3),
			4: newSinkNode(4),
		}
		proc, err := NewProcessor(nodes, links)
		require.NoError(t, err)
		proc.AcceptHook(HookFunc(func(ctx HookCtx) {
			switch ctx.Pos {
			case HookPosAfterProcess:
				step := ctx.Detail.(StepInfo)
				assert.Equal(t, uint64(len(order)), step.Seq)
				order = append(order, step.NodeID)
			case HookPosEnqueue:
				enqueued++
			}
		}))
		require.NoError(t, proc.Run(context.Background()))
		return
	}
	first, enqueued := trace()
	second, _ := trace()
	assert.Equal(t, first, second)
	assert.Len(t, first, 3+3+3+3)
	assert.Equal(t, len(first), enqueued)
	assert.Equal(t, []int{1, 2, 1, 3, 4, 2}, first[:6])
}

func TestIdleBackoff(t *testing.T) {
	run := func(backoff time.Duration) time.Duration {
		proc, err := NewProcessor(map[int]Node{1: &pollerNode{Base: NewBase(1, 0, 0), steps: 5}}, nil)
		require.NoError(t, err)
		proc.IdleBackoff = backoff
		t0 := time.Now()
		require.NoError(t, proc.Run(context.Background()))
		return time.Since(t0)
	}
	assert.GreaterOrEqual(t, run(10*time.Millisecond), 40*time.Millisecond)
	assert.Less(t, run(-1), 40*time.Millisecond)
}

func TestDriveWithExternalLink(t *testing.T) {
	src := &externalNode{Base: NewBase(1, 0, 1), address: "127.0.0.1"}
	sink := newSinkNode(2)
	links := Links{}
	mustConnect(t, links, PortID{1, 0}, PortID{2, 0})
	proc, err := NewProcessor(map[int]Node{1: src, 2: sink}, links)
	require.NoError(t, err)
	require.NoError(t, proc.Setup(context.Background()))
	require.Len(t, proc.Addrs(), 1)

	errch := make(chan error, 1)
	go func() { errch <- proc.Drive(context.Background()) }()

	conn, err := net.Dial("tcp", proc.Addrs()[0].String())
	require.NoError(t, err)
	defer conn.Close()
	for _, frame := range []wire.Frame{
		&wire.DataFrame{SourceID: 1, NodeID: 1, Delay: 11, Payload: []byte("one")},
		&wire.DataFrame{SourceID: 1, NodeID: 1, Delay: 22, Payload: []byte("two")},
		wire.EndOfData{},
	} {
		data, err := frame.MarshalBinary()
		require.NoError(t, err)
		_, err = conn.Write(data)
		require.NoError(t, err)
	}

	select {
	case err := <-errch:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("drive did not terminate")
	}
	assert.Equal(t, []int64{11, 22}, sink.timestamps())

	// the engine says goodbye with end-of-data
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	rest, err := io.ReadAll(conn)
	require.NoError(t, err)
	assert.Equal(t, []byte{byte(wire.CommandEndOfData)}, rest)
	assert.NoError(t, proc.Teardown())
}

func TestDriveConnectTimeout(t *testing.T) {
	src := &externalNode{Base: NewBase(1, 0, 1), address: "127.0.0.1"}
	proc, err := NewProcessor(map[int]Node{1: src}, nil)
	require.NoError(t, err)
	proc.ConnectTimeout = 20 * time.Millisecond
	err = proc.Run(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSelectorDrainsAndAsserts(t *testing.T) {
	states := map[int]*NodeState{1: NewNodeState(newSourceNode(1, 1))}
	sel, err := NewSelector(states, Links{})
	require.NoError(t, err)
	require.Equal(t, 1, sel.Len())

	ns := sel.SelectNext()
	assert.Equal(t, 1, ns.ID())
	require.NoError(t, ns.Process())
	require.NoError(t, sel.Update(ns))

	assert.True(t, sel.Finished())
	assert.Panics(t, func() { sel.SelectNext() })
}

// Package snowflake 生成按时间递增的 63 位记录 ID：
// 41 位毫秒时间戳 | 10 位节点号 | 12 位序列号
package snowflake

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// 2024-01-01T00:00:00Z
	epoch int64 = 1704067200000

	nodeBits = 10
	seqBits  = 12

	MaxNode = 1<<nodeBits - 1
	maxSeq  = 1<<seqBits - 1

	nodeShift = seqBits
	timeShift = seqBits + nodeBits

	// 回拨不超过该毫秒数时等待追上，超过则报错
	maxBackwardsWait = 5
)

var (
	ErrNodeOutOfRange = errors.New("snowflake: node out of range 0..1023")
	ErrClockBackwards = errors.New("snowflake: clock moved backwards")
)

// Generator 并发安全
type Generator struct {
	node int64

	mu   sync.Mutex
	last int64
	seq  int64

	now func() int64
}

func NewGenerator(node int64) (*Generator, error) {
	if node < 0 || node > MaxNode {
		return nil, ErrNodeOutOfRange
	}
	return &Generator{
		node: node,
		last: -1,
		now:  func() int64 { return time.Now().UnixMilli() },
	}, nil
}

// Node 节点号
func (g *Generator) Node() int64 { return g.node }

// NextID 同一毫秒序列号用尽时自旋到下一毫秒
func (g *Generator) NextID() (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := g.now()
	if ms < g.last {
		if g.last-ms > maxBackwardsWait {
			return 0, ErrClockBackwards
		}
		for ms < g.last {
			ms = g.now()
		}
	}

	switch {
	case ms > g.last:
		g.seq = 0
	case g.seq < maxSeq:
		g.seq++
	default:
		for ms <= g.last {
			ms = g.now()
		}
		g.seq = 0
	}
	g.last = ms

	return (ms-epoch)<<timeShift | g.node<<nodeShift | g.seq, nil
}

// Parts 拆解后的 ID
type Parts struct {
	Time     time.Time
	Node     int64
	Sequence int64
}

func Parse(id int64) Parts {
	return Parts{
		Time:     time.UnixMilli(id>>timeShift + epoch).UTC(),
		Node:     id >> nodeShift & MaxNode,
		Sequence: id & maxSeq,
	}
}

var std atomic.Pointer[Generator]

func init() {
	g, _ := NewGenerator(1)
	std.Store(g)
}

// NextID 使用进程级生成器
func NextID() (int64, error) {
	return std.Load().NextID()
}

// SetNode 替换进程级生成器。多个实例写同一数据库时节点号必须不同
func SetNode(node int64) error {
	g, err := NewGenerator(node)
	if err != nil {
		return err
	}
	std.Store(g)
	return nil
}

package zookeeper

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-zookeeper/zk"
)

const lockRoot = "/storefront/locks"

// ErrNotHeld 表示在未持有锁时调用 Unlock。
var ErrNotHeld = errors.New("zookeeper lock is not held")

// DistributedLock 是一个跨进程互斥锁，例如保证完整性巡检同一时间只在一台机器上运行。
type DistributedLock struct {
	conn     *Conn
	path     string // e.g. /storefront/locks/integrity-audit
	lockNode string
}

// NewDistributedLock 为 resource 创建锁，并确保父节点存在。
func NewDistributedLock(conn *Conn, resource string) (*DistributedLock, error) {
	path := lockRoot + "/" + resource
	if err := conn.ensurePath(path); err != nil {
		return nil, err
	}
	return &DistributedLock{conn: conn, path: path}, nil
}

// Lock 阻塞直到获得锁或 ctx 结束。
func (l *DistributedLock) Lock(ctx context.Context) error {
	node, err := l.conn.CreateProtectedEphemeralSequential(l.path+"/lock-", nil, zk.WorldACL(zk.PermAll))
	if err != nil {
		return fmt.Errorf("failed to create sequential node: %w", err)
	}
	l.lockNode = node
	mine := strings.TrimPrefix(node, l.path+"/")

	for {
		children, _, err := l.conn.Children(l.path)
		if err != nil {
			return l.abort(fmt.Errorf("failed to list lock nodes: %w", err))
		}
		// protected 节点带有 _c_<guid>- 前缀，按序号排序
		sort.Slice(children, func(i, j int) bool { return sequence(children[i]) < sequence(children[j]) })

		idx := -1
		for i, child := range children {
			if child == mine {
				idx = i
				break
			}
		}
		switch {
		case idx < 0:
			return l.abort(errors.New("own lock node disappeared, session probably expired"))
		case idx == 0:
			return nil
		}

		exists, _, events, err := l.conn.ExistsW(l.path + "/" + children[idx-1])
		if err != nil {
			return l.abort(fmt.Errorf("failed to watch previous node: %w", err))
		}
		if !exists {
			continue
		}
		select {
		case <-events:
		case <-ctx.Done():
			return l.abort(ctx.Err())
		}
	}
}

// TryLock 只尝试一次，拿不到锁时返回 false 并清理自己的节点。
func (l *DistributedLock) TryLock(ctx context.Context) (bool, error) {
	ctx, cancel := context.WithCancel(ctx)
	cancel()
	err := l.Lock(ctx)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, context.Canceled):
		return false, nil
	default:
		return false, err
	}
}

// Unlock 释放锁。
func (l *DistributedLock) Unlock() error {
	if l.lockNode == "" {
		return ErrNotHeld
	}
	err := l.conn.Delete(l.lockNode, -1)
	if err != nil && err != zk.ErrNoNode {
		return fmt.Errorf("failed to delete lock node: %w", err)
	}
	l.lockNode = ""
	return nil
}

func (l *DistributedLock) abort(cause error) error {
	if l.lockNode != "" {
		_ = l.conn.Delete(l.lockNode, -1)
		l.lockNode = ""
	}
	return cause
}

func sequence(node string) string {
	if i := strings.LastIndex(node, "lock-"); i >= 0 {
		return node[i+len("lock-"):]
	}
	return node
}

// Package zookeeper 提供基于临时顺序节点的分布式互斥锁。
package zookeeper

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-zookeeper/zk"

	"storefront/internal/pkg/logger"
)

// Conn 包装 zk.Conn。
type Conn struct {
	*zk.Conn
}

// Dial 连接 ZooKeeper 集群，servers 格式为 "host1:2181,host2:2181"。
func Dial(servers string, sessionTimeout time.Duration) (*Conn, error) {
	addrs := strings.Split(servers, ",")
	c, _, err := zk.Connect(addrs, sessionTimeout, zk.WithLogInfo(false))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to zookeeper %s: %w", servers, err)
	}
	logger.L().Info().Strs("servers", addrs).Msg("connected to zookeeper")
	return &Conn{Conn: c}, nil
}

// ensurePath 逐级创建持久节点，已存在的节点忽略。
func (c *Conn) ensurePath(path string) error {
	cur := ""
	for _, part := range strings.Split(strings.Trim(path, "/"), "/") {
		cur += "/" + part
		_, err := c.Create(cur, nil, 0, zk.WorldACL(zk.PermAll))
		if err != nil && err != zk.ErrNodeExists {
			return fmt.Errorf("create node %s: %w", cur, err)
		}
	}
	return nil
}

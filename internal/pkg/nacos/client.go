// Package nacos 封装 Nacos 的服务注册和配置中心客户端。
package nacos

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nacos-group/nacos-sdk-go/v2/clients"
	"github.com/nacos-group/nacos-sdk-go/v2/clients/naming_client"
	"github.com/nacos-group/nacos-sdk-go/v2/common/constant"
	"github.com/nacos-group/nacos-sdk-go/v2/vo"

	"storefront/internal/pkg/logger"
)

const defaultGroup = "DEFAULT_GROUP"

// Client 封装了 Nacos 命名客户端。
type Client struct {
	namingClient naming_client.INamingClient
	groupName    string
}

// ServerConfigs 解析 "ip1:port1,ip2:port2" 格式的地址列表。
func ServerConfigs(addrs string) ([]constant.ServerConfig, error) {
	var serverConfigs []constant.ServerConfig
	for _, addr := range strings.Split(addrs, ",") {
		host, portStr, ok := strings.Cut(strings.TrimSpace(addr), ":")
		if !ok || host == "" {
			return nil, fmt.Errorf("invalid nacos address format: %s", addr)
		}
		port, err := strconv.ParseUint(portStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid port in nacos address: %s", portStr)
		}
		serverConfigs = append(serverConfigs, *constant.NewServerConfig(host, port))
	}
	return serverConfigs, nil
}

func clientConfig(namespaceID string) *constant.ClientConfig {
	if namespaceID == "" {
		logger.L().Warn().Msg("NACOS_NAMESPACE is not set, using the public namespace")
	}
	return constant.NewClientConfig(
		constant.WithNotLoadCacheAtStart(true),
		constant.WithLogDir("/tmp/nacos/log"),
		constant.WithCacheDir("/tmp/nacos/cache"),
		constant.WithLogLevel("warn"),
		constant.WithNamespaceId(namespaceID),
	)
}

func group(g string) string {
	if g == "" {
		return defaultGroup
	}
	return g
}

// Instance 是本进程在注册中心的一条记录。
type Instance struct {
	Service  string
	IP       string
	Port     int
	Metadata map[string]string
}

// NewNacosClient 创建命名服务客户端。
func NewNacosClient(addrs, namespaceID, groupName string) (*Client, error) {
	serverConfigs, err := ServerConfigs(addrs)
	if err != nil {
		return nil, err
	}
	nc, err := clients.NewNamingClient(vo.NacosClientParam{
		ClientConfig:  clientConfig(namespaceID),
		ServerConfigs: serverConfigs,
	})
	if err != nil {
		return nil, fmt.Errorf("nacos naming client: %w", err)
	}
	return &Client{namingClient: nc, groupName: group(groupName)}, nil
}

// Register 以临时实例注册，心跳断开后由 Nacos 自动摘除。
func (c *Client) Register(in Instance) error {
	ok, err := c.namingClient.RegisterInstance(vo.RegisterInstanceParam{
		Ip: in.IP, Port: uint64(in.Port), ServiceName: in.Service, GroupName: c.groupName,
		Weight: 1, Enable: true, Healthy: true, Ephemeral: true, Metadata: in.Metadata,
	})
	switch {
	case err != nil:
		return fmt.Errorf("register %s: %w", in.Service, err)
	case !ok:
		return fmt.Errorf("register %s: rejected by nacos", in.Service)
	}
	logger.L().Info().Str("service", in.Service).Str("addr", fmt.Sprintf("%s:%d", in.IP, in.Port)).Msg("registered in nacos")
	return nil
}

// Deregister 注销实例。
func (c *Client) Deregister(in Instance) error {
	if _, err := c.namingClient.DeregisterInstance(vo.DeregisterInstanceParam{
		Ip: in.IP, Port: uint64(in.Port), ServiceName: in.Service, GroupName: c.groupName, Ephemeral: true,
	}); err != nil {
		return fmt.Errorf("deregister %s: %w", in.Service, err)
	}
	return nil
}

func (c *Client) Close() {
	if c.namingClient != nil {
		c.namingClient.CloseClient()
	}
}

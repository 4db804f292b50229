package nacos

import (
	"fmt"

	"github.com/nacos-group/nacos-sdk-go/v2/clients"
	"github.com/nacos-group/nacos-sdk-go/v2/clients/config_client"
	"github.com/nacos-group/nacos-sdk-go/v2/vo"
)

// ConfigClient 封装 Nacos 配置中心，配置内容是 YAML 文本。
type ConfigClient struct {
	client    config_client.IConfigClient
	groupName string
}

// NewConfigClient 创建配置中心客户端。
func NewConfigClient(addrs, namespaceID, groupName string) (*ConfigClient, error) {
	serverConfigs, err := ServerConfigs(addrs)
	if err != nil {
		return nil, err
	}
	client, err := clients.NewConfigClient(vo.NacosClientParam{
		ClientConfig:  clientConfig(namespaceID),
		ServerConfigs: serverConfigs,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create nacos config client: %w", err)
	}
	return &ConfigClient{client: client, groupName: group(groupName)}, nil
}

// Get 读取 dataID 对应的配置内容。
func (c *ConfigClient) Get(dataID string) (string, error) {
	content, err := c.client.GetConfig(vo.ConfigParam{DataId: dataID, Group: c.groupName})
	if err != nil {
		return "", fmt.Errorf("failed to get nacos config %s: %w", dataID, err)
	}
	return content, nil
}

// Listen 监听配置变更。
func (c *ConfigClient) Listen(dataID string, onChange func(data string)) error {
	err := c.client.ListenConfig(vo.ConfigParam{
		DataId: dataID,
		Group:  c.groupName,
		OnChange: func(_, _, _, data string) {
			onChange(data)
		},
	})
	if err != nil {
		return fmt.Errorf("failed to listen nacos config %s: %w", dataID, err)
	}
	return nil
}

// CloseClient 停止监听并关闭连接。
func (c *ConfigClient) CloseClient() {
	c.client.CloseClient()
}

package port

// SecretProvider 提供计算订单摘要用的服务端密钥，密钥永远不会出现在客户端。
type SecretProvider interface {
	IntegritySecret() []byte
}

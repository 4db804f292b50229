package adapter

import "storefront/internal/service/order/domain/port"

// StaticSecret 是从配置读取的摘要密钥。
type StaticSecret []byte

var _ port.SecretProvider = StaticSecret(nil)

func (s StaticSecret) IntegritySecret() []byte { return s }

package domain

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// CanonicalDigestInput 生成摘要的规范输入: 键排序的 JSON，金额固定两位小数。
// 数据库可能把 18.00 存成 18，固定格式保证重新计算时字节一致。
func CanonicalDigestInput(orderNumber string, t Totals) []byte {
	// encoding/json 对 map 的键按字典序输出
	doc := map[string]string{
		"order_number":  orderNumber,
		"subtotal":      t.Subtotal.StringFixed(2),
		"tax":           t.Tax.StringFixed(2),
		"shipping_cost": t.ShippingCost.StringFixed(2),
		"discount":      t.Discount.StringFixed(2),
		"total":         t.Total.StringFixed(2),
	}
	b, _ := json.Marshal(doc)
	return b
}

// ComputeIntegrityDigest = hex(HMAC-SHA256(secret, canonical))。
func ComputeIntegrityDigest(secret []byte, orderNumber string, t Totals) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(CanonicalDigestInput(orderNumber, t))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyIntegrity 用当前存储的字段重新计算摘要并做常量时间比较。
func VerifyIntegrity(secret []byte, o *Order) bool {
	want, err := hex.DecodeString(o.IntegrityDigest)
	if err != nil || len(want) != sha256.Size {
		return false
	}
	got, _ := hex.DecodeString(ComputeIntegrityDigest(secret, o.OrderNumber, o.Totals))
	return hmac.Equal(got, want)
}

// Seal 计算并写入订单摘要，在订单号和金额确定之后调用。
func (o *Order) Seal(secret []byte) {
	o.IntegrityDigest = ComputeIntegrityDigest(secret, o.OrderNumber, o.Totals)
}

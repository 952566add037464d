// internal/cipher/cipher.go

// Package cipher 提供資料落地時使用的「可逆混淆」轉換。
// 以金鑰展開成固定 64 bytes 後做逐位元組 XOR，兩次套用即還原原文。
// 注意：這不是加密，只是讓檔案內容無法直接以肉眼閱讀。
package cipher

import "math/bits"

// KeySize 為展開後的金鑰長度。
const KeySize = 64

// emptySeed 在輸入金鑰為空時取代之。
const emptySeed byte = 0x42

// Key 為展開完成的 XOR 金鑰。
type Key [KeySize]byte

// Derive 將任意長度的金鑰重複填滿 64 bytes，
// 再依位置做旋轉與位移：k[i] = rotl8(k[i], i%5) ^ (31+i)。
func Derive(secret []byte) Key {
	if len(secret) == 0 {
		secret = []byte{emptySeed}
	}
	var k Key
	for i := range k {
		b := secret[i%len(secret)]
		k[i] = bits.RotateLeft8(b, i%5) ^ byte(31+i)
	}
	return k
}

// Apply 回傳 in 與金鑰 XOR 後的新切片，不修改輸入。
// Apply(Apply(b)) == b。
func (k Key) Apply(in []byte) []byte {
	out := make([]byte, len(in))
	for i, b := range in {
		out[i] = b ^ k[i%KeySize]
	}
	return out
}

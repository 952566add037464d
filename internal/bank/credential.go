package bank

import "github.com/cespare/xxhash/v2"

// MinPINLength 為 PIN 最短長度。
const MinPINLength = 4

// digestPIN 以全行程共用的 salt 計算 PIN 的單向雜湊。
func digestPIN(pin, salt string) uint64 {
	return xxhash.Sum64String(pin + ":" + salt)
}

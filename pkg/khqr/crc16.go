package khqr

import "fmt"

// CRC-16/CCITT-FALSE 参数
const (
	crcPolynomial uint16 = 0x1021
	crcInit       uint16 = 0xFFFF
)

var crcTable [256]uint16

func init() {
	for i := range crcTable {
		crc := uint16(i) << 8
		for j := 0; j < 8; j++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ crcPolynomial
			} else {
				crc <<= 1
			}
		}
		crcTable[i] = crc
	}
}

// CRC16 计算 CRC-16/CCITT-FALSE
func CRC16(data []byte) uint16 {
	crc := crcInit
	for _, b := range data {
		crc = crc<<8 ^ crcTable[byte(crc>>8)^b]
	}
	return crc
}

// ComputeCRC16 计算校验值并格式化为 4 位大写十六进制
func ComputeCRC16(data string) string {
	return fmt.Sprintf("%04X", CRC16([]byte(data)))
}

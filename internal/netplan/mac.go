package netplan

import "crypto/sha256"

// GenerateMAC derives a deterministic, locally-administered unicast MAC
// from (jailName, bridge), so the same Fleet Config always assigns the same
// address to the same jail on the same bridge without needing to persist
// anything. The first octet's locally-administered bit is forced on and
// the multicast bit forced off per the standard MAC convention.
func GenerateMAC(jailName, bridge string) string {
	hash := sha256.Sum256([]byte(jailName + "|" + bridge))
	first := (hash[0] &^ 0x01) | 0x02
	return formatMAC(first, hash[1], hash[2], hash[3], hash[4], hash[5])
}

func formatMAC(b0, b1, b2, b3, b4, b5 byte) string {
	const hexDigits = "0123456789abcdef"
	buf := make([]byte, 17)
	bytes := [6]byte{b0, b1, b2, b3, b4, b5}
	for i, b := range bytes {
		buf[i*3] = hexDigits[b>>4]
		buf[i*3+1] = hexDigits[b&0x0f]
		if i < 5 {
			buf[i*3+2] = ':'
		}
	}
	return string(buf)
}

package txpool

import "encoding/binary"

// fixedHash64 adapts a transaction hash into the hash.Hash64 shape that
// bloomfilter/v2 wants, using the hash's own
// first 8 bytes as the digest. No further mixing is needed: the input
// is already a cryptographic hash, not raw attacker data.
type fixedHash64 uint64

func (h fixedHash64) Write(p []byte) (int, error) { return len(p), nil }

func (h fixedHash64) Sum(b []byte) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(h))
	return append(b, buf[:]...)
}

func (h fixedHash64) Reset()         {}
func (h fixedHash64) Size() int      { return 8 }
func (h fixedHash64) BlockSize() int { return 8 }
func (h fixedHash64) Sum64() uint64  { return uint64(h) }

func hashFilterItem(hash [32]byte) fixedHash64 {
	return fixedHash64(binary.LittleEndian.Uint64(hash[:8]))
}

// encodeHashInfo/decodeHashInfo give TransactionHashInfo a fixed 12-byte
// wire shape for the fastcache mirror of hashIndex.
func encodeHashInfo(buf []byte, info TransactionHashInfo) []byte {
	var tmp [12]byte
	binary.LittleEndian.PutUint64(tmp[0:8], info.TransactionID)
	binary.LittleEndian.PutUint32(tmp[8:12], info.Expiration)
	return append(buf, tmp[:]...)
}

func decodeHashInfo(data []byte) TransactionHashInfo {
	return TransactionHashInfo{
		TransactionID: binary.LittleEndian.Uint64(data[0:8]),
		Expiration:    binary.LittleEndian.Uint32(data[8:12]),
	}
}

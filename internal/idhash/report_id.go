package idhash

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"

	"github.com/mr-tron/base58"
)

// ComputeReportID computes a deterministic report_id using SHA256.
// Formula: SHA256(dataset|provider|content) where content is the checksum
// of every exported table value (see ComputeRowsChecksum). Two reports share
// an id only when they would export the same rows.
// Returns the base58-encoded hash.
func ComputeReportID(dataset, provider, content string) string {
	data := fmt.Sprintf("%s|%s|%s", dataset, provider, content)

	hash := sha256.Sum256([]byte(data))
	return base58.Encode(hash[:])
}

// ComputeRowsChecksum hashes keyed values in order. Values are written with
// 12 significant digits so that float noise in the last bits does not change
// the checksum. keys and values must have the same length.
// Returns hex-encoded hash (64 characters).
func ComputeRowsChecksum(keys []string, values []float64) string {
	h := sha256.New()
	buf := make([]byte, 0, 64)
	for i, key := range keys {
		buf = buf[:0]
		buf = append(buf, key...)
		buf = append(buf, '=')
		buf = strconv.AppendFloat(buf, values[i], 'g', 12, 64)
		buf = append(buf, '\n')
		h.Write(buf)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// ComputeVectorChecksum hashes the IEEE-754 bits of values in order.
// Returns hex-encoded hash (64 characters).
func ComputeVectorChecksum(values []float64) string {
	h := sha256.New()
	var buf [8]byte
	for _, v := range values {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		h.Write(buf[:])
	}
	return hex.EncodeToString(h.Sum(nil))
}

package zipstream

import (
	"encoding/binary"
)

// Record signatures.
const (
	localHeaderSignature     = 0x04034b50
	directoryHeaderSignature = 0x02014b50
	directoryEndSignature    = 0x06054b50
)

// Record sizes, excluding the variable-length name.
const (
	localHeaderLen     = 30
	directoryHeaderLen = 46
	directoryEndLen    = 22
)

// Compression methods.
const (
	Store   uint16 = 0
	Deflate uint16 = 8
)

const (
	versionStore   = 10 // 1.0
	versionDeflate = 20 // 2.0

	// versionMadeBy is MS-DOS, PKZIP 6.3.
	versionMadeBy = 63

	// flagUTF8 marks the name as UTF-8.
	flagUTF8 = 1 << 11
)

// Field limits of the classic (non zip64) format.
const (
	uint16max = (1 << 16) - 1
	uint32max = (1 << 32) - 1
)

// Record is the metadata of one committed entry.
type Record struct {
	Offset           uint32
	Name             string
	CRC32            uint32
	Method           uint16
	Modified         uint32
	SizeCompressed   uint32
	SizeUncompressed uint32
}

// Version returns the version needed to extract.
func (r *Record) Version() uint16 {
	if r.Method == Deflate {
		return versionDeflate
	}
	return versionStore
}

// localHeader encodes the local file header.
func (r *Record) localHeader() []byte {
	b := make([]byte, localHeaderLen)
	le := binary.LittleEndian
	le.PutUint32(b[0:], localHeaderSignature)
	le.PutUint16(b[4:], r.Version())
	le.PutUint16(b[6:], flagUTF8)
	le.PutUint16(b[8:], r.Method)
	le.PutUint32(b[10:], r.Modified)
	le.PutUint32(b[14:], r.CRC32)
	le.PutUint32(b[18:], r.SizeCompressed)
	le.PutUint32(b[22:], r.SizeUncompressed)
	le.PutUint16(b[26:], uint16(len(r.Name)))
	le.PutUint16(b[28:], 0)
	return b
}

// directoryHeader encodes the central directory header.
func (r *Record) directoryHeader() []byte {
	b := make([]byte, directoryHeaderLen)
	le := binary.LittleEndian
	le.PutUint32(b[0:], directoryHeaderSignature)
	le.PutUint16(b[4:], versionMadeBy)
	le.PutUint16(b[6:], r.Version())
	le.PutUint16(b[8:], flagUTF8)
	le.PutUint16(b[10:], r.Method)
	le.PutUint32(b[12:], r.Modified)
	le.PutUint32(b[16:], r.CRC32)
	le.PutUint32(b[20:], r.SizeCompressed)
	le.PutUint32(b[24:], r.SizeUncompressed)
	le.PutUint16(b[28:], uint16(len(r.Name)))
	// extra, comment, disk start, internal and external
	// attributes are left zero.
	le.PutUint32(b[42:], r.Offset)
	return b
}

// directoryEnd encodes the end of central directory record.
func directoryEnd(entries uint16, size, offset uint32) []byte {
	b := make([]byte, directoryEndLen)
	le := binary.LittleEndian
	le.PutUint32(b[0:], directoryEndSignature)
	le.PutUint16(b[8:], entries)
	le.PutUint16(b[10:], entries)
	le.PutUint32(b[12:], size)
	le.PutUint32(b[16:], offset)
	return b
}

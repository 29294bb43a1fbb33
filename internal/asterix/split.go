package asterix

import "encoding/binary"

// SplitRecords cuts a buffer of back-to-back records into individual records
// using each record's length field. The slices alias b. A trailing fragment
// shorter than its declared length is reported as ErrTruncated along with the
// complete records before it.
func SplitRecords(b []byte) ([][]byte, error) {
	var out [][]byte
	offset := 0
	for offset < len(b) {
		rest := b[offset:]
		if len(rest) < 3 {
			return out, &FormatError{Offset: offset, Err: ErrTruncated}
		}
		n := int(binary.BigEndian.Uint16(rest[1:3]))
		if n < headerLen {
			return out, &FormatError{Offset: offset + 1, Err: ErrLength}
		}
		if n > len(rest) {
			return out, &FormatError{Offset: offset, Err: ErrTruncated}
		}
		out = append(out, rest[:n:n])
		offset += n
	}
	return out, nil
}

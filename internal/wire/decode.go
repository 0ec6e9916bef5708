package wire

// Decode tries the binary framing first, falling back to the textual
// framing when the binary magic does not match. A binary magic match
// with a bad tag or body is a data error and is returned immediately
// without falling back to text — a message that announces itself as
// binary does not get a second chance to be read as text.
func Decode(payload []byte) (*Op, error) {
	op, err := DecodeBinary(payload)
	if err != nil {
		return nil, err
	}
	if op != nil {
		return op, nil
	}
	return DecodeText(payload)
}

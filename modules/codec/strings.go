package codec

// PutCString returns s followed by a single NUL terminator.
func PutCString(s string) []byte {
	out := make([]byte, len(s)+1)
	copy(out, s)
	out[len(s)] = 0
	return out
}

// GetCString reads a NUL-terminated string starting at the front of data. It
// returns the decoded string and the number of bytes consumed, including the
// terminator. If data has no NUL byte, the whole of data is taken as the
// string with no terminator consumed.
func GetCString(data []byte) (string, int) {
	for i, b := range data {
		if b == 0 {
			return string(data[:i]), i + 1
		}
	}
	return string(data), len(data)
}

package blobarena

// String is a handle to an immutable byte string stored in a Container.
type String uint32

// AllocString stores a copy of s.
func AllocString(c Container, s string) (String, error) {
	h, err := ArrayOf(c, []byte(s))
	if err != nil {
		return 0, err
	}
	return String(h), nil
}

// Raw returns the untyped handle.
func (s String) Raw() RawPtr { return RawPtr(s) }

// IsNil reports whether s is the nil handle.
func (s String) IsNil() bool { return s == 0 }

// Len returns the length in bytes.
func (s String) Len(c Container) int {
	return Array[byte](s).Len(c)
}

// Value returns a copy of the string. The nil handle yields "".
func (s String) Value(c Container) string {
	if s == 0 {
		return ""
	}
	return string(Array[byte](s).Slice(c))
}

// Bytes returns the string bytes aliasing the arena.
func (s String) Bytes(c Container) []byte {
	return Array[byte](s).Slice(c)
}

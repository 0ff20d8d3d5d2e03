package cowstr

// Value is either a borrowed view over a shared string or an owned,
// mutable byte buffer. A borrowed Value never copies until it is promoted.
type Value struct {
	borrowed string
	owned    []byte
	isOwned  bool

	// copies counts buffer allocations that copied data into the Value.
	copies int
	// copied is the total number of bytes moved by those allocations.
	copied int
}

// Borrowed returns a Value that shares s without copying it.
func Borrowed(s string) Value {
	return Value{borrowed: s}
}

// Owned returns a Value holding its own copy of s. The buffer is sized
// exactly to s, so the first Append always reallocates.
func Owned(s string) Value {
	buf := make([]byte, len(s))
	copy(buf, s)
	return Value{
		owned:   buf,
		isOwned: true,
		copies:  1,
		copied:  len(s),
	}
}

// IsOwned reports whether v holds its own buffer.
func (v *Value) IsOwned() bool {
	return v.isOwned
}

// Len returns the length of the content in bytes.
func (v *Value) Len() int {
	if v.isOwned {
		return len(v.owned)
	}
	return len(v.borrowed)
}

// Equal reports whether the content of v equals s, without copying.
func (v *Value) Equal(s string) bool {
	if v.isOwned {
		return string(v.owned) == s
	}
	return v.borrowed == s
}

// String returns the content. For an owned Value this copies the buffer.
func (v *Value) String() string {
	if v.isOwned {
		return string(v.owned)
	}
	return v.borrowed
}

// Promote turns a borrowed Value into an owned one, copying the shared
// content. It reports whether a copy happened; owned Values are left as is.
func (v *Value) Promote() bool {
	if v.isOwned {
		return false
	}
	buf := make([]byte, len(v.borrowed))
	copy(buf, v.borrowed)
	v.owned = buf
	v.borrowed = ""
	v.isOwned = true
	v.copies++
	v.copied += len(buf)
	return true
}

// Bytes promotes v and returns its mutable buffer. The slice is only
// valid until the next Append.
func (v *Value) Bytes() []byte {
	v.Promote()
	return v.owned
}

// Append promotes v if needed and appends s to the owned buffer.
func (v *Value) Append(s string) {
	v.Promote()
	if len(v.owned)+len(s) > cap(v.owned) {
		v.copies++
		v.copied += len(v.owned)
	}
	v.owned = append(v.owned, s...)
}

// IntoOwned returns the content as a buffer the caller owns. A borrowed
// Value is copied; an owned Value hands over its buffer.
func (v *Value) IntoOwned() []byte {
	v.Promote()
	return v.owned
}

// Copies returns how many buffer allocations copied data into v.
func (v *Value) Copies() int {
	return v.copies
}

// CopiedBytes returns the total number of bytes those allocations copied.
func (v *Value) CopiedBytes() int {
	return v.copied
}

// Appender returns a function that appends its argument to v and returns
// debug. v stays owned by the caller and is mutated by every call.
func Appender(v *Value, debug bool) func(string) bool {
	return func(s string) bool {
		v.Append(s)
		return debug
	}
}

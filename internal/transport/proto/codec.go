package proto

import (
	"github.com/tinylib/msgp/msgp"
)

// Message is a unit-of-work payload. Payloads are msgpack maps keyed by
// field name; unknown keys are skipped on decode so either side may add
// fields without breaking the other.
type Message interface {
	msgp.Marshaler
	msgp.Unmarshaler
}

// Compile-time interface checks.
var (
	_ Message = (*HelloReq)(nil)
	_ Message = (*HelloResp)(nil)
	_ Message = (*FileEntryMsg)(nil)
	_ Message = (*ResolveReq)(nil)
	_ Message = (*ResolveResp)(nil)
	_ Message = (*StatReq)(nil)
	_ Message = (*StatResp)(nil)
	_ Message = (*ReadDirReq)(nil)
	_ Message = (*ReadDirResp)(nil)
	_ Message = (*MkdirAllReq)(nil)
	_ Message = (*AckResp)(nil)
	_ Message = (*OpenWriteReq)(nil)
	_ Message = (*OpenWriteResp)(nil)
	_ Message = (*WriteDataReq)(nil)
	_ Message = (*WriteDataResp)(nil)
	_ Message = (*OpenReadReq)(nil)
	_ Message = (*OpenReadResp)(nil)
	_ Message = (*ReadDataReq)(nil)
	_ Message = (*ReadDataResp)(nil)
	_ Message = (*CloseReq)(nil)
	_ Message = (*ErrorResp)(nil)
)

// decodeMap walks a msgpack map, handing each key to field. field returns
// the remaining bytes after consuming the value, and must msgp.Skip values
// for keys it does not know.
func decodeMap(b []byte, field func(key string, b []byte) ([]byte, error)) ([]byte, error) {
	n, b, err := msgp.ReadMapHeaderBytes(b)
	if err != nil {
		return b, err
	}
	for range n {
		var key []byte
		key, b, err = msgp.ReadMapKeyZC(b)
		if err != nil {
			return b, err
		}
		b, err = field(string(key), b)
		if err != nil {
			return b, msgp.WrapError(err, string(key))
		}
	}
	return b, nil
}

// marshalPath encodes the messages whose only field is a path.
func marshalPath(b []byte, p string) []byte {
	b = msgp.AppendMapHeader(b, 1)
	b = msgp.AppendString(b, "path")
	return msgp.AppendString(b, p)
}

func unmarshalPath(b []byte, p *string) ([]byte, error) {
	return decodeMap(b, func(key string, b []byte) ([]byte, error) {
		var err error
		switch key {
		case "path":
			*p, b, err = msgp.ReadStringBytes(b)
		default:
			b, err = msgp.Skip(b)
		}
		return b, err
	})
}

func marshalHandle(b []byte, h string) []byte {
	b = msgp.AppendMapHeader(b, 1)
	b = msgp.AppendString(b, "handle")
	return msgp.AppendString(b, h)
}

// MarshalMsg implements msgp.Marshaler.
func (z *HelloReq) MarshalMsg(b []byte) ([]byte, error) {
	b = msgp.AppendMapHeader(b, 1)
	b = msgp.AppendString(b, "version")
	return msgp.AppendInt(b, z.Version), nil
}

// UnmarshalMsg implements msgp.Unmarshaler.
func (z *HelloReq) UnmarshalMsg(b []byte) ([]byte, error) {
	return decodeMap(b, func(key string, b []byte) ([]byte, error) {
		var err error
		switch key {
		case "version":
			z.Version, b, err = msgp.ReadIntBytes(b)
		default:
			b, err = msgp.Skip(b)
		}
		return b, err
	})
}

// MarshalMsg implements msgp.Marshaler.
func (z *HelloResp) MarshalMsg(b []byte) ([]byte, error) {
	b = msgp.AppendMapHeader(b, 3)
	b = msgp.AppendString(b, "version")
	b = msgp.AppendInt(b, z.Version)
	b = msgp.AppendString(b, "cwd")
	b = msgp.AppendString(b, z.Cwd)
	b = msgp.AppendString(b, "os")
	return msgp.AppendString(b, z.OS), nil
}

// UnmarshalMsg implements msgp.Unmarshaler.
func (z *HelloResp) UnmarshalMsg(b []byte) ([]byte, error) {
	return decodeMap(b, func(key string, b []byte) ([]byte, error) {
		var err error
		switch key {
		case "version":
			z.Version, b, err = msgp.ReadIntBytes(b)
		case "cwd":
			z.Cwd, b, err = msgp.ReadStringBytes(b)
		case "os":
			z.OS, b, err = msgp.ReadStringBytes(b)
		default:
			b, err = msgp.Skip(b)
		}
		return b, err
	})
}

// MarshalMsg implements msgp.Marshaler.
func (z *FileEntryMsg) MarshalMsg(b []byte) ([]byte, error) {
	b = msgp.AppendMapHeader(b, 7)
	b = msgp.AppendString(b, "path")
	b = msgp.AppendString(b, z.Path)
	b = msgp.AppendString(b, "name")
	b = msgp.AppendString(b, z.Name)
	b = msgp.AppendString(b, "size")
	b = msgp.AppendInt64(b, z.Size)
	b = msgp.AppendString(b, "mtime")
	b = msgp.AppendInt64(b, z.ModTime)
	b = msgp.AppendString(b, "mode")
	b = msgp.AppendUint32(b, z.Mode)
	b = msgp.AppendString(b, "is_dir")
	b = msgp.AppendBool(b, z.IsDir)
	b = msgp.AppendString(b, "is_symlink")
	return msgp.AppendBool(b, z.IsSymlink), nil
}

// UnmarshalMsg implements msgp.Unmarshaler.
func (z *FileEntryMsg) UnmarshalMsg(b []byte) ([]byte, error) {
	return decodeMap(b, func(key string, b []byte) ([]byte, error) {
		var err error
		switch key {
		case "path":
			z.Path, b, err = msgp.ReadStringBytes(b)
		case "name":
			z.Name, b, err = msgp.ReadStringBytes(b)
		case "size":
			z.Size, b, err = msgp.ReadInt64Bytes(b)
		case "mtime":
			z.ModTime, b, err = msgp.ReadInt64Bytes(b)
		case "mode":
			z.Mode, b, err = msgp.ReadUint32Bytes(b)
		case "is_dir":
			z.IsDir, b, err = msgp.ReadBoolBytes(b)
		case "is_symlink":
			z.IsSymlink, b, err = msgp.ReadBoolBytes(b)
		default:
			b, err = msgp.Skip(b)
		}
		return b, err
	})
}

// MarshalMsg implements msgp.Marshaler.
func (z *ResolveReq) MarshalMsg(b []byte) ([]byte, error) { return marshalPath(b, z.Path), nil }

// UnmarshalMsg implements msgp.Unmarshaler.
func (z *ResolveReq) UnmarshalMsg(b []byte) ([]byte, error) { return unmarshalPath(b, &z.Path) }

// MarshalMsg implements msgp.Marshaler.
func (z *ResolveResp) MarshalMsg(b []byte) ([]byte, error) { return marshalPath(b, z.Path), nil }

// UnmarshalMsg implements msgp.Unmarshaler.
func (z *ResolveResp) UnmarshalMsg(b []byte) ([]byte, error) { return unmarshalPath(b, &z.Path) }

// MarshalMsg implements msgp.Marshaler.
func (z *StatReq) MarshalMsg(b []byte) ([]byte, error) { return marshalPath(b, z.Path), nil }

// UnmarshalMsg implements msgp.Unmarshaler.
func (z *StatReq) UnmarshalMsg(b []byte) ([]byte, error) { return unmarshalPath(b, &z.Path) }

// MarshalMsg implements msgp.Marshaler.
func (z *StatResp) MarshalMsg(b []byte) ([]byte, error) {
	b = msgp.AppendMapHeader(b, 1)
	b = msgp.AppendString(b, "entry")
	return z.Entry.MarshalMsg(b)
}

// UnmarshalMsg implements msgp.Unmarshaler.
func (z *StatResp) UnmarshalMsg(b []byte) ([]byte, error) {
	return decodeMap(b, func(key string, b []byte) ([]byte, error) {
		if key == "entry" {
			return z.Entry.UnmarshalMsg(b)
		}
		return msgp.Skip(b)
	})
}

// MarshalMsg implements msgp.Marshaler.
func (z *ReadDirReq) MarshalMsg(b []byte) ([]byte, error) { return marshalPath(b, z.Path), nil }

// UnmarshalMsg implements msgp.Unmarshaler.
func (z *ReadDirReq) UnmarshalMsg(b []byte) ([]byte, error) { return unmarshalPath(b, &z.Path) }

// MarshalMsg implements msgp.Marshaler.
//
//nolint:gosec // G115: directory listings never approach 2^32 entries
func (z *ReadDirResp) MarshalMsg(b []byte) ([]byte, error) {
	b = msgp.AppendMapHeader(b, 1)
	b = msgp.AppendString(b, "entries")
	b = msgp.AppendArrayHeader(b, uint32(len(z.Entries)))
	var err error
	for i := range z.Entries {
		if b, err = z.Entries[i].MarshalMsg(b); err != nil {
			return b, msgp.WrapError(err, "entries", i)
		}
	}
	return b, nil
}

// UnmarshalMsg implements msgp.Unmarshaler.
func (z *ReadDirResp) UnmarshalMsg(b []byte) ([]byte, error) {
	return decodeMap(b, func(key string, b []byte) ([]byte, error) {
		if key != "entries" {
			return msgp.Skip(b)
		}
		n, b, err := msgp.ReadArrayHeaderBytes(b)
		if err != nil {
			return b, err
		}
		z.Entries = make([]FileEntryMsg, n)
		for i := range z.Entries {
			if b, err = z.Entries[i].UnmarshalMsg(b); err != nil {
				return b, msgp.WrapError(err, i)
			}
		}
		return b, nil
	})
}

// MarshalMsg implements msgp.Marshaler.
func (z *MkdirAllReq) MarshalMsg(b []byte) ([]byte, error) {
	b = msgp.AppendMapHeader(b, 2)
	b = msgp.AppendString(b, "path")
	b = msgp.AppendString(b, z.Path)
	b = msgp.AppendString(b, "perm")
	return msgp.AppendUint32(b, z.Perm), nil
}

// UnmarshalMsg implements msgp.Unmarshaler.
func (z *MkdirAllReq) UnmarshalMsg(b []byte) ([]byte, error) {
	return decodeMap(b, func(key string, b []byte) ([]byte, error) {
		var err error
		switch key {
		case "path":
			z.Path, b, err = msgp.ReadStringBytes(b)
		case "perm":
			z.Perm, b, err = msgp.ReadUint32Bytes(b)
		default:
			b, err = msgp.Skip(b)
		}
		return b, err
	})
}

// MarshalMsg implements msgp.Marshaler.
func (*AckResp) MarshalMsg(b []byte) ([]byte, error) {
	return msgp.AppendMapHeader(b, 0), nil
}

// UnmarshalMsg implements msgp.Unmarshaler.
func (*AckResp) UnmarshalMsg(b []byte) ([]byte, error) {
	return decodeMap(b, func(_ string, b []byte) ([]byte, error) {
		return msgp.Skip(b)
	})
}

// MarshalMsg implements msgp.Marshaler.
func (z *OpenWriteReq) MarshalMsg(b []byte) ([]byte, error) {
	b = msgp.AppendMapHeader(b, 2)
	b = msgp.AppendString(b, "path")
	b = msgp.AppendString(b, z.Path)
	b = msgp.AppendString(b, "mode")
	return msgp.AppendInt(b, z.Mode), nil
}

// UnmarshalMsg implements msgp.Unmarshaler.
func (z *OpenWriteReq) UnmarshalMsg(b []byte) ([]byte, error) {
	return decodeMap(b, func(key string, b []byte) ([]byte, error) {
		var err error
		switch key {
		case "path":
			z.Path, b, err = msgp.ReadStringBytes(b)
		case "mode":
			z.Mode, b, err = msgp.ReadIntBytes(b)
		default:
			b, err = msgp.Skip(b)
		}
		return b, err
	})
}

// MarshalMsg implements msgp.Marshaler.
func (z *OpenWriteResp) MarshalMsg(b []byte) ([]byte, error) {
	return marshalHandle(b, z.Handle), nil
}

// UnmarshalMsg implements msgp.Unmarshaler.
func (z *OpenWriteResp) UnmarshalMsg(b []byte) ([]byte, error) {
	return decodeMap(b, func(key string, b []byte) ([]byte, error) {
		var err error
		switch key {
		case "handle":
			z.Handle, b, err = msgp.ReadStringBytes(b)
		default:
			b, err = msgp.Skip(b)
		}
		return b, err
	})
}

// MarshalMsg implements msgp.Marshaler.
func (z *WriteDataReq) MarshalMsg(b []byte) ([]byte, error) {
	b = msgp.AppendMapHeader(b, 2)
	b = msgp.AppendString(b, "handle")
	b = msgp.AppendString(b, z.Handle)
	b = msgp.AppendString(b, "data")
	return msgp.AppendBytes(b, z.Data), nil
}

// UnmarshalMsg implements msgp.Unmarshaler.
func (z *WriteDataReq) UnmarshalMsg(b []byte) ([]byte, error) {
	return decodeMap(b, func(key string, b []byte) ([]byte, error) {
		var err error
		switch key {
		case "handle":
			z.Handle, b, err = msgp.ReadStringBytes(b)
		case "data":
			z.Data, b, err = msgp.ReadBytesBytes(b, z.Data)
		default:
			b, err = msgp.Skip(b)
		}
		return b, err
	})
}

// MarshalMsg implements msgp.Marshaler.
func (z *WriteDataResp) MarshalMsg(b []byte) ([]byte, error) {
	b = msgp.AppendMapHeader(b, 1)
	b = msgp.AppendString(b, "written")
	return msgp.AppendInt64(b, z.Written), nil
}

// UnmarshalMsg implements msgp.Unmarshaler.
func (z *WriteDataResp) UnmarshalMsg(b []byte) ([]byte, error) {
	return decodeMap(b, func(key string, b []byte) ([]byte, error) {
		var err error
		switch key {
		case "written":
			z.Written, b, err = msgp.ReadInt64Bytes(b)
		default:
			b, err = msgp.Skip(b)
		}
		return b, err
	})
}

// MarshalMsg implements msgp.Marshaler.
func (z *OpenReadReq) MarshalMsg(b []byte) ([]byte, error) { return marshalPath(b, z.Path), nil }

// UnmarshalMsg implements msgp.Unmarshaler.
func (z *OpenReadReq) UnmarshalMsg(b []byte) ([]byte, error) { return unmarshalPath(b, &z.Path) }

// MarshalMsg implements msgp.Marshaler.
func (z *OpenReadResp) MarshalMsg(b []byte) ([]byte, error) {
	b = msgp.AppendMapHeader(b, 2)
	b = msgp.AppendString(b, "handle")
	b = msgp.AppendString(b, z.Handle)
	b = msgp.AppendString(b, "size")
	return msgp.AppendInt64(b, z.Size), nil
}

// UnmarshalMsg implements msgp.Unmarshaler.
func (z *OpenReadResp) UnmarshalMsg(b []byte) ([]byte, error) {
	return decodeMap(b, func(key string, b []byte) ([]byte, error) {
		var err error
		switch key {
		case "handle":
			z.Handle, b, err = msgp.ReadStringBytes(b)
		case "size":
			z.Size, b, err = msgp.ReadInt64Bytes(b)
		default:
			b, err = msgp.Skip(b)
		}
		return b, err
	})
}

// MarshalMsg implements msgp.Marshaler.
func (z *ReadDataReq) MarshalMsg(b []byte) ([]byte, error) {
	b = msgp.AppendMapHeader(b, 2)
	b = msgp.AppendString(b, "handle")
	b = msgp.AppendString(b, z.Handle)
	b = msgp.AppendString(b, "length")
	return msgp.AppendInt(b, z.Length), nil
}

// UnmarshalMsg implements msgp.Unmarshaler.
func (z *ReadDataReq) UnmarshalMsg(b []byte) ([]byte, error) {
	return decodeMap(b, func(key string, b []byte) ([]byte, error) {
		var err error
		switch key {
		case "handle":
			z.Handle, b, err = msgp.ReadStringBytes(b)
		case "length":
			z.Length, b, err = msgp.ReadIntBytes(b)
		default:
			b, err = msgp.Skip(b)
		}
		return b, err
	})
}

// MarshalMsg implements msgp.Marshaler.
func (z *ReadDataResp) MarshalMsg(b []byte) ([]byte, error) {
	b = msgp.AppendMapHeader(b, 2)
	b = msgp.AppendString(b, "data")
	b = msgp.AppendBytes(b, z.Data)
	b = msgp.AppendString(b, "eof")
	return msgp.AppendBool(b, z.EOF), nil
}

// UnmarshalMsg implements msgp.Unmarshaler.
func (z *ReadDataResp) UnmarshalMsg(b []byte) ([]byte, error) {
	return decodeMap(b, func(key string, b []byte) ([]byte, error) {
		var err error
		switch key {
		case "data":
			z.Data, b, err = msgp.ReadBytesBytes(b, z.Data)
		case "eof":
			z.EOF, b, err = msgp.ReadBoolBytes(b)
		default:
			b, err = msgp.Skip(b)
		}
		return b, err
	})
}

// MarshalMsg implements msgp.Marshaler.
func (z *CloseReq) MarshalMsg(b []byte) ([]byte, error) {
	return marshalHandle(b, z.Handle), nil
}

// UnmarshalMsg implements msgp.Unmarshaler.
func (z *CloseReq) UnmarshalMsg(b []byte) ([]byte, error) {
	return decodeMap(b, func(key string, b []byte) ([]byte, error) {
		var err error
		switch key {
		case "handle":
			z.Handle, b, err = msgp.ReadStringBytes(b)
		default:
			b, err = msgp.Skip(b)
		}
		return b, err
	})
}

// MarshalMsg implements msgp.Marshaler.
func (z *ErrorResp) MarshalMsg(b []byte) ([]byte, error) {
	b = msgp.AppendMapHeader(b, 4)
	b = msgp.AppendString(b, "code")
	b = msgp.AppendString(b, string(z.Code))
	b = msgp.AppendString(b, "message")
	b = msgp.AppendString(b, z.Message)
	b = msgp.AppendString(b, "path")
	b = msgp.AppendString(b, z.Path)
	b = msgp.AppendString(b, "closest")
	return msgp.AppendString(b, z.Closest), nil
}

// UnmarshalMsg implements msgp.Unmarshaler.
func (z *ErrorResp) UnmarshalMsg(b []byte) ([]byte, error) {
	return decodeMap(b, func(key string, b []byte) ([]byte, error) {
		var err error
		switch key {
		case "code":
			var code string
			code, b, err = msgp.ReadStringBytes(b)
			z.Code = ErrorCode(code)
		case "message":
			z.Message, b, err = msgp.ReadStringBytes(b)
		case "path":
			z.Path, b, err = msgp.ReadStringBytes(b)
		case "closest":
			z.Closest, b, err = msgp.ReadStringBytes(b)
		default:
			b, err = msgp.Skip(b)
		}
		return b, err
	})
}

package proto

// ProtocolVersion is exchanged in the hello unit. Bump only on breaking
// wire changes.
const ProtocolVersion = 1

// Message type constants for the ferry channel. Every request type has
// exactly one success response type; any request may instead be answered
// with MsgErrorResp.
const (
	MsgHelloReq  byte = 0x01
	MsgHelloResp byte = 0x02

	// Filesystem probes.
	MsgResolveReq  byte = 0x10
	MsgResolveResp byte = 0x11
	MsgStatReq     byte = 0x12
	MsgStatResp    byte = 0x13
	MsgReadDirReq  byte = 0x14
	MsgReadDirResp byte = 0x15

	// Destination side.
	MsgMkdirAllReq   byte = 0x20
	MsgAckResp       byte = 0x21
	MsgOpenWriteReq  byte = 0x22
	MsgOpenWriteResp byte = 0x23
	MsgWriteDataReq  byte = 0x24
	MsgWriteDataResp byte = 0x25

	// Source side.
	MsgOpenReadReq  byte = 0x30
	MsgOpenReadResp byte = 0x31
	MsgReadDataReq  byte = 0x32
	MsgReadDataResp byte = 0x33

	MsgCloseReq byte = 0x40

	MsgErrorResp byte = 0xFF
)

// ErrorCode classifies a failed unit of work.
type ErrorCode string

const (
	CodeGeneric    ErrorCode = "generic"
	CodeNotExist   ErrorCode = "not-exist"
	CodeExist      ErrorCode = "exist"
	CodeLocked     ErrorCode = "locked"
	CodePermission ErrorCode = "permission"
	CodeBadHandle  ErrorCode = "bad-handle"
	CodeNotDir     ErrorCode = "not-dir"
)

// HelloReq opens a session.
type HelloReq struct {
	Version int `msg:"version"`
}

// HelloResp reports the agent's protocol version and environment.
type HelloResp struct {
	Cwd     string `msg:"cwd"`
	OS      string `msg:"os"`
	Version int    `msg:"version"`
}

// FileEntryMsg is the wire representation of transport.FileEntry.
type FileEntryMsg struct {
	Path      string `msg:"path"`
	Name      string `msg:"name"`
	Size      int64  `msg:"size"`
	ModTime   int64  `msg:"mtime"` // Unix nanoseconds
	Mode      uint32 `msg:"mode"`
	IsDir     bool   `msg:"is_dir"`
	IsSymlink bool   `msg:"is_symlink"`
}

// ResolveReq asks for the absolute form of a path.
type ResolveReq struct {
	Path string `msg:"path"`
}

// ResolveResp carries the absolute path.
type ResolveResp struct {
	Path string `msg:"path"`
}

// StatReq requests lstat metadata.
type StatReq struct {
	Path string `msg:"path"`
}

// StatResp carries the entry.
type StatResp struct {
	Entry FileEntryMsg `msg:"entry"`
}

// ReadDirReq lists a directory.
type ReadDirReq struct {
	Path string `msg:"path"`
}

// ReadDirResp carries the sorted children.
type ReadDirResp struct {
	Entries []FileEntryMsg `msg:"entries"`
}

// MkdirAllReq creates a directory chain.
type MkdirAllReq struct {
	Path string `msg:"path"`
	Perm uint32 `msg:"perm"`
}

// AckResp acknowledges a request that returns nothing.
type AckResp struct{}

// OpenWriteReq is the open-write probe. Mode is a transport.WriteMode.
type OpenWriteReq struct {
	Path string `msg:"path"`
	Mode int    `msg:"mode"`
}

// OpenWriteResp names the handle subsequent WriteDataReq units target.
type OpenWriteResp struct {
	Handle string `msg:"handle"`
}

// WriteDataReq appends one buffer to an open write handle.
type WriteDataReq struct {
	Handle string `msg:"handle"`
	Data   []byte `msg:"data"`
}

// WriteDataResp reports how many bytes were written.
type WriteDataResp struct {
	Written int64 `msg:"written"`
}

// OpenReadReq opens a source file.
type OpenReadReq struct {
	Path string `msg:"path"`
}

// OpenReadResp names the read handle and the length fixed at open.
type OpenReadResp struct {
	Handle string `msg:"handle"`
	Size   int64  `msg:"size"`
}

// ReadDataReq reads up to Length bytes from a read handle.
type ReadDataReq struct {
	Handle string `msg:"handle"`
	Length int    `msg:"length"`
}

// ReadDataResp returns the bytes read. EOF is set once the source is
// exhausted; Data may be non-empty in the same response.
type ReadDataResp struct {
	Data []byte `msg:"data"`
	EOF  bool   `msg:"eof"`
}

// CloseReq releases a read or write handle.
type CloseReq struct {
	Handle string `msg:"handle"`
}

// ErrorResp is sent in place of a success response.
type ErrorResp struct {
	Code    ErrorCode `msg:"code"`
	Message string    `msg:"message"`
	Path    string    `msg:"path"`
	Closest string    `msg:"closest"`
}

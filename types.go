package vfsbox

// OpenFlag describes the role and access mode of a file being opened.
type OpenFlag int

const (
	OpenReadOnly  OpenFlag = 1 << iota // open for reading only
	OpenReadWrite                      // open for reading and writing
	OpenCreate                         // create if missing
	OpenMainDB                         // the engine's primary database file
	OpenMainJournal
	OpenTempDB
	OpenTempJournal
	OpenSubjournal
	OpenWAL
	OpenURI // name carries URI-style query parameters
)

// AccessFlag selects the check performed by Provider.Access.
type AccessFlag int

const (
	AccessExists    AccessFlag = iota // file exists
	AccessReadWrite                   // file is readable and writable
	AccessRead                        // file is readable
)

// LockLevel is the five-level advisory locking protocol. Levels are
// ordered; a handle holds exactly one level at a time.
type LockLevel int

const (
	LockNone LockLevel = iota
	LockShared
	LockReserved
	LockPending
	LockExclusive
)

// SyncFlag qualifies a Sync request.
type SyncFlag int

const (
	SyncNormal SyncFlag = 1 << iota
	SyncFull
	SyncDataOnly
)

// DeviceFlag is a bitmask of durability properties a device guarantees.
// A driver reports these so the engine can skip safety mechanisms the
// device makes redundant.
type DeviceFlag int

const (
	DeviceAtomic             DeviceFlag = 1 << iota // writes of any size are atomic
	DevicePowersafeOverwrite                        // overwrites never damage neighboring bytes
	DeviceSafeAppend                                // appended data is written before the size changes
	DeviceSequential                                // writes reach storage in order
)

// FcntlOp identifies a FileControl operation.
type FcntlOp int

const (
	// FcntlVFSName requests a descriptor of the driver serving the
	// handle. The result is written to the *string passed as arg.
	FcntlVFSName FcntlOp = iota + 1
)

// ShmLockFlag qualifies a ShmLock request.
type ShmLockFlag int

const (
	ShmLockUnlock ShmLockFlag = 1 << iota
	ShmLockAcquire
	ShmLockShared
	ShmLockExclusive
)

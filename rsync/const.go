package rsync

const (
	RSYNC_VERSION = "@RSYNCD: 27.3\n"
	RSYNCD_OK     = "@RSYNCD: OK"
	RSYNC_EXIT    = "@RSYNCD: EXIT"

	PROTOCOL_VERSION = int32(27)

	INDEX_END     = int32(-1)
	EXCLUSION_END = int32(0)
	END1          = '\n'
	END2          = '\x00'
	PHASE_END     = int32(-1)

	// Signature head sent when the receiver wants the whole file
	BLOCK_SIZE = int32(700)
	SUM_LENGTH = int32(16)

	// Multiplex(1 byte)
	MUX_BASE       = 7
	MSG_DATA       = 0
	MSG_ERROR_XFER = 1
	MSG_INFO       = 2
	MSG_ERROR      = 3
	MSG_WARNING    = 4
	MSG_IO_ERROR   = 22
	MSG_NOOP       = 42
	MSG_SUCCESS    = 100
	MSG_DELETED    = 101
	MSG_NO_SEND    = 102

	// FILE LIST(1 byte)
	FLIST_END       = 0x00
	FLIST_TOP_LEVEL = 0x01 /* needed for remote --delete */
	FLIST_MODE_SAME = 0x02 /* mode is repeat */
	FLIST_RDEV_SAME = 0x04 /* rdev is repeat */
	FLIST_UID_SAME  = 0x08 /* uid is repeat */
	FLIST_GID_SAME  = 0x10 /* gid is repeat */
	FLIST_NAME_SAME = 0x20 /* name is repeat */
	FLIST_NAME_LONG = 0x40 /* name >255 bytes */
	FLIST_TIME_SAME = 0x80 /* time is repeat */
)

//go:build linux

package watcher

import "golang.org/x/sys/unix"

// statfs f_type magic numbers, from linux/magic.h.
const (
	magicNFS   = 0x6969
	magicSMB   = 0x517b
	magicSMB2  = 0xfe534d42
	magicCIFS  = 0xff534d42
	magicFUSE  = 0x65735546
	magicEXT4  = 0xef53
	magicXFS   = 0x58465342
	magicBTRFS = 0x9123683e
	magicTMPFS = 0x01021994
	magicZFS   = 0x2fc12fc1
	magicOVL   = 0x794c7630
)

func probeFilesystem(path string) FilesystemType {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return FSTypeUnknown
	}
	switch uint32(st.Type) {
	case magicNFS:
		return FSTypeNFS
	case magicSMB, magicSMB2, magicCIFS:
		return FSTypeSMB
	case magicFUSE:
		// sshfs is a FUSE mount; statfs cannot tell them apart.
		return FSTypeFUSE
	case magicEXT4, magicXFS, magicBTRFS, magicTMPFS, magicZFS, magicOVL:
		return FSTypeLocal
	}
	return FSTypeUnknown
}

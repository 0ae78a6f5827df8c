//go:build unix

package engine

import (
	"io/fs"

	"golang.org/x/sys/unix"
)

// canTrackDirs reports whether directory identity is available, which
// SymlinkFollow needs to walk each directory once.
const canTrackDirs = true

// statPath stats path, following a final symlink when follow is set.
func statPath(path string, follow bool) (statInfo, error) {
	var st unix.Stat_t
	var err error
	if follow {
		err = unix.Stat(path, &st)
	} else {
		err = unix.Lstat(path, &st)
	}
	if err != nil {
		op := "lstat"
		if follow {
			op = "stat"
		}
		return statInfo{}, &fs.PathError{Op: op, Path: path, Err: err}
	}

	info := statInfo{
		size: st.Size,
		//nolint:unconvert // Dev is int32 on darwin
		id: DevIno{Dev: uint64(st.Dev), Ino: st.Ino},
	}
	switch st.Mode & unix.S_IFMT {
	case unix.S_IFREG:
		info.kind = kindRegular
	case unix.S_IFDIR:
		info.kind = kindDir
	case unix.S_IFLNK:
		info.kind = kindSymlink
	default:
		info.kind = kindOther
	}
	return info, nil
}

//go:build !unix

package engine

import "os"

// Without inode numbers a revisited directory cannot be recognized, so
// SymlinkFollow does not descend into directory links here.
const canTrackDirs = false

func statPath(path string, follow bool) (statInfo, error) {
	stat := os.Lstat
	if follow {
		stat = os.Stat
	}
	fi, err := stat(path)
	if err != nil {
		return statInfo{}, err
	}

	info := statInfo{size: fi.Size()}
	switch mode := fi.Mode(); {
	case mode.IsRegular():
		info.kind = kindRegular
	case mode.IsDir():
		info.kind = kindDir
	case mode&os.ModeSymlink != 0:
		info.kind = kindSymlink
	default:
		info.kind = kindOther
	}
	return info, nil
}

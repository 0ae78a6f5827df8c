package engine

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
)

const compareBufSize = 32 * 1024

// sameContent reports whether the files at a and b hold identical bytes.
// Sizes are compared first; contents are then streamed side by side.
func sameContent(a, b string) (bool, error) {
	fa, err := os.Open(a)
	if err != nil {
		return false, fmt.Errorf("open %s: %w", a, err)
	}
	defer fa.Close()

	fb, err := os.Open(b)
	if err != nil {
		return false, fmt.Errorf("open %s: %w", b, err)
	}
	defer fb.Close()

	ia, err := fa.Stat()
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", a, err)
	}
	ib, err := fb.Stat()
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", b, err)
	}
	if ia.Size() != ib.Size() {
		return false, nil
	}

	bufA := make([]byte, compareBufSize)
	bufB := make([]byte, compareBufSize)
	for {
		na, errA := io.ReadFull(fa, bufA)
		nb, errB := io.ReadFull(fb, bufB)
		if !bytes.Equal(bufA[:na], bufB[:nb]) {
			return false, nil
		}
		doneA, errA := readDone(errA)
		doneB, errB := readDone(errB)
		if errA != nil {
			return false, fmt.Errorf("read %s: %w", a, errA)
		}
		if errB != nil {
			return false, fmt.Errorf("read %s: %w", b, errB)
		}
		if doneA || doneB {
			return doneA && doneB, nil
		}
	}
}

// readDone classifies an io.ReadFull error: EOF and a short final read
// mean the file ended.
func readDone(err error) (bool, error) {
	if err == nil {
		return false, nil
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true, nil
	}
	return false, err
}

package store

import (
	"os"
	"path/filepath"

	"github.com/cellarscm/engine/modules/codec"
)

// WriteBackStatus reports what writeBack actually did.
type WriteBackStatus int

const (
	// WriteBackNotNecessary means the encoded bytes already match what's
	// on disk (or what we believe is on disk); nothing was written.
	WriteBackNotNecessary WriteBackStatus = iota
	// WriteBackOK means new bytes were written successfully.
	WriteBackOK
	// WriteBackConflict means the file on disk has changed to something
	// other than what this writer last saw or is about to write.
	WriteBackConflict
)

// encodable is satisfied by record.Header, record.BranchHead, and
// record.Commit: anything write-back can turn into on-disk bytes.
type encodable interface {
	Encode() []byte
}

// writeBack encodes the record and only touches the file on disk if the
// encoded bytes differ from the stored hash. A conflicting on-disk change
// (neither our stored hash nor our new bytes) is reported rather than
// clobbered.
func writeBack(folder, filename string, storedHash *[codec.DigestSize]byte, rec encodable) (WriteBackStatus, []byte, error) {
	encoded := rec.Encode()
	newHash := codec.HashData(encoded)
	if newHash == *storedHash {
		return WriteBackNotNecessary, encoded, nil
	}

	path := filepath.Join(folder, filename)
	onDisk, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		if werr := os.WriteFile(path, encoded, 0o644); werr != nil {
			return WriteBackNotNecessary, encoded, werr
		}
		*storedHash = newHash
		return WriteBackOK, encoded, nil
	case err != nil:
		return WriteBackNotNecessary, encoded, err
	}

	onDiskHash := codec.HashData(onDisk)
	switch onDiskHash {
	case newHash:
		// Someone else already wrote exactly what we were about to.
		*storedHash = newHash
		return WriteBackNotNecessary, encoded, nil
	case *storedHash:
		// We still own the last write; safe to overwrite.
		if werr := os.WriteFile(path, encoded, 0o644); werr != nil {
			return WriteBackNotNecessary, encoded, werr
		}
		*storedHash = newHash
		return WriteBackOK, encoded, nil
	default:
		return WriteBackConflict, encoded, &ErrConflict{Path: path, New: encoded}
	}
}

// reread re-reads filename from folder, compares its hash to storedHash,
// and reports whether it changed. The caller is responsible for
// re-decoding the bytes when changed is true.
func reread(folder, filename string, storedHash *[codec.DigestSize]byte) (data []byte, changed bool, err error) {
	path := filepath.Join(folder, filename)
	data, err = os.ReadFile(path)
	if err != nil {
		return nil, false, err
	}
	h := codec.HashData(data)
	if h == *storedHash {
		return data, false, nil
	}
	*storedHash = h
	return data, true, nil
}

//go:build !linux

package device

import "os"

func deviceSize(file *os.File) (int64, error) {
	info, err := file.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func lockFile(file *os.File) error {
	return nil
}

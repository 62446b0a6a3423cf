package filesystem

import (
	"time"

	"github.com/spf13/afero"
)

// Stat implements the FileStat port on top of an afero filesystem
type Stat struct {
	fs afero.Fs
}

// NewStat creates a Stat backed by the real operating system filesystem
func NewStat() *Stat {
	return NewStatFs(afero.NewOsFs())
}

// NewStatFs creates a Stat over any afero filesystem
func NewStatFs(fs afero.Fs) *Stat {
	return &Stat{fs: fs}
}

// ModTime returns the modification time of path. Missing files and
// directories report false; a missing companion texture is routine.
func (s *Stat) ModTime(path string) (time.Time, bool) {
	info, err := s.fs.Stat(path)
	if err != nil || info.IsDir() {
		return time.Time{}, false
	}
	return info.ModTime(), true
}


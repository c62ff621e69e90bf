package sftp

import (
	"os"
	"path"
	"sort"
)

// Walker recursively walks a remote directory tree, yielding one entry per
// Step call in the same pre-order, depth-first sequence filepath.Walk uses
// locally. It is built directly on Lstat and OpenDir/ReadDir, since the
// only filesystem it will ever walk is a remote SFTP session.
type Walker struct {
	s *Session

	cur     item
	stack   []item
	descend bool // whether the next Step should push cur's children
}

type item struct {
	path string
	info os.FileInfo
	err  error
}

// Walk returns a Walker rooted at root. The first Step call visits root
// itself.
func (s *Session) Walk(root string) *Walker {
	info, err := s.Lstat(root)
	return &Walker{s: s, stack: []item{{path: root, info: info, err: err}}}
}

// Step advances the walk to the next entry, returning false once the tree
// is exhausted. Callers must check Err after every Step that returns true.
//
// Descent into the just-visited entry's children is deferred to the start
// of the *next* Step call, rather than happening inline here, so that a
// SkipDir called any time after Step returns and before the next Step can
// still suppress it.
func (w *Walker) Step() bool {
	if w.descend && w.cur.err == nil && w.cur.info != nil && w.cur.info.IsDir() {
		names, err := w.readdirnames(w.cur.path)
		if err != nil {
			w.stack = append(w.stack, item{path: w.cur.path, err: err})
		} else {
			// push in reverse so the walk still visits children in
			// ascending name order, since the stack pops from the end.
			for i := len(names) - 1; i >= 0; i-- {
				child := path.Join(w.cur.path, names[i])
				info, err := w.s.Lstat(child)
				w.stack = append(w.stack, item{path: child, info: info, err: err})
			}
		}
	}

	if len(w.stack) == 0 {
		return false
	}

	w.cur = w.stack[len(w.stack)-1]
	w.stack = w.stack[:len(w.stack)-1]
	w.descend = true

	return true
}

func (w *Walker) readdirnames(dirpath string) ([]string, error) {
	dir, err := w.s.OpenDir(dirpath)
	if err != nil {
		return nil, err
	}
	defer dir.Close()

	infos, err := dir.ReadDir()
	if err != nil {
		return nil, err
	}

	names := make([]string, len(infos))
	for i, fi := range infos {
		names[i] = fi.Name()
	}
	sort.Strings(names)
	return names, nil
}

// Path returns the path of the most recently visited entry.
func (w *Walker) Path() string { return w.cur.path }

// Stat returns the attributes of the most recently visited entry.
func (w *Walker) Stat() os.FileInfo { return w.cur.info }

// Err returns any error encountered while visiting the current entry, most
// often a failed Lstat or OpenDir on a child.
func (w *Walker) Err() error { return w.cur.err }

// SkipDir causes the walk to skip the current directory's children. It has
// no effect when the current entry is not a directory. It must be called
// after a Step that visited the directory and before the next Step.
func (w *Walker) SkipDir() {
	w.descend = false
}

package rsync

import (
	"path/filepath"
	"strings"
)

// Reference: rsync 2.6.0
// --exclude & --exclude-from

// Filter List
type Exclusion struct {
	patterns []string
	root     string
}

func (e *Exclusion) Match(name string) (matched bool, err error) {
	for _, p := range e.patterns {
		if strings.HasPrefix(name, p) && len(name) > len(p) && name[len(p)] == '/' {
			return true, nil
		}
		if matched, err = filepath.Match(p, name); matched || err != nil {
			break
		}
	}
	return
}

func (e *Exclusion) Add(pattern string) {
	e.patterns = append(e.patterns, filepath.Join(e.root, pattern))
}

// Send transmits the filter list: each pattern length-prefixed, then the
// terminating zero. The client always sends this, even when empty.
func (e *Exclusion) Send(conn *Conn) error {
	for _, p := range e.patterns {
		if err := conn.WriteInt(int32(len(p))); err != nil {
			return err
		}
		if _, err := conn.Write([]byte(p)); err != nil {
			return err
		}
	}
	return conn.WriteInt(EXCLUSION_END)
}

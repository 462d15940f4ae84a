package rsync

import "strconv"

type Attribs struct {
	Sender        bool // --sender
	Server        bool // --server
	Recursive     bool // -r
	DryRun        bool // -n
	HasModTime    bool // -t
	HasPerms      bool // -p
	HasLinks      bool // -l
	HasGID        bool // -g
	HasUID        bool // -u
	Compress      bool // -z
	CompressLevel int  // --compress-level=N, 0 means the default
}

func (a *Attribs) Marshal() []byte {
	//"--server\n--sender\n-l\n-p\n-r\n-t\n-z\n.\n"
	args := make([]byte, 0, 64)
	if a.Server {
		args = append(args, []byte("--server\n")...)
	}
	if a.Sender {
		args = append(args, []byte("--sender\n")...)
	}
	if a.Recursive {
		args = append(args, []byte("-r\n")...)
	}
	if a.DryRun {
		args = append(args, []byte("-n\n")...)
	}
	if a.HasModTime {
		args = append(args, []byte("-t\n")...)
	}
	if a.HasLinks {
		args = append(args, []byte("-l\n")...)
	}
	if a.HasPerms {
		args = append(args, []byte("-p\n")...)
	}
	if a.HasGID {
		args = append(args, []byte("-g\n")...)
	}
	if a.HasUID {
		args = append(args, []byte("-u\n")...)
	}
	if a.Compress {
		args = append(args, []byte("-z\n")...)
		if a.CompressLevel != 0 {
			args = append(args, []byte("--compress-level="+strconv.Itoa(a.CompressLevel)+"\n")...)
		}
	}
	return args
}

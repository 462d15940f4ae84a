package rsync

import (
	"strings"

	"github.com/pkg/errors"
)

// SplitURI takes rsync://host[:port]/module[/path] apart. The default
// daemon port 873 is appended when none is given.
func SplitURI(uri string) (address string, module string, path string, err error) {
	if !strings.HasPrefix(uri, "rsync://") {
		/* host::module[/path] */
		return "", "", "", errors.New("only rsync:// URIs are supported")
	}

	first := uri[len("rsync://"):]
	i := strings.IndexByte(first, '/')
	if i == -1 {
		return "", "", "", errors.New("no module name")
	}
	second := first[i+1:] // ignore '/'
	first = first[:i]

	address = first
	if strings.IndexByte(first, ':') == -1 {
		address += ":873" // Default port: 873
	}

	if i = strings.IndexByte(second, '/'); i != -1 {
		path = second[i:]
		second = second[:i]
	}
	module = second
	if module == "" {
		return "", "", "", errors.New("no module name")
	}

	return address, module, path, nil
}

func TrimPrepath(prepath string) string {
	//pre-path shouldn't use "/" as prefix, and must have a "/" suffix
	//pre-path can be: "xx", "xx/", "/xx", "/xx/", "", "/"
	ppath := prepath
	if !strings.HasSuffix(ppath, "/") {
		ppath += "/"
	}
	if strings.HasPrefix(ppath, "/") {
		ppath = ppath[1:]
	}
	return ppath
}

package rsync

import (
	"bytes"
	"fmt"
	"log"
	"net"
	"strings"
)

/* As a Client, we need to:
1. connect to server by socket or ssh
2. handshake: version, args, ioerror
	PS: client always sends exclusions/filter list
3. construct a Receiver or a Sender, then execute it.
*/

// SocketClient connects to an rsync daemon and performs the inband
// handshake. The returned peer is a Receiver when attribs ask the server
// to send (--sender), otherwise a Sender.
func SocketClient(storage FS, address string, module string, path string, attribs *Attribs, callback Callback, exclusion *Exclusion) (SendReceiver, error) {
	skt, err := net.Dial("tcp", address)
	if err != nil {
		return nil, err
	}

	conn := &Conn{
		writer:    skt,
		reader:    skt,
		bytespool: make([]byte, 8),
	}

	if callback == nil {
		callback = SimpleCallback{}
	}
	if exclusion == nil {
		exclusion = &Exclusion{}
	}

	/* HandShake by socket */
	// send my version
	if _, err = conn.Write([]byte(RSYNC_VERSION)); err != nil {
		return nil, err
	}

	// receive server's protocol version
	versionStr, err := readLine(conn)
	if err != nil {
		return nil, err
	}
	var remoteProtocol, remoteProtocolSub int
	if _, err = fmt.Sscanf(versionStr, "@RSYNCD: %d.%d", &remoteProtocol, &remoteProtocolSub); err != nil {
		return nil, err
	}
	log.Println(strings.TrimSpace(versionStr))

	buf := new(bytes.Buffer)

	// send mod name
	buf.WriteString(module)
	buf.WriteByte('\n')
	if _, err = conn.Write(buf.Bytes()); err != nil {
		return nil, err
	}
	buf.Reset()

	// Wait for '@RSYNCD: OK'
	for {
		res, err := readLine(conn)
		if err != nil {
			return nil, err
		}
		log.Print(res)
		if strings.Contains(res, RSYNC_EXIT) {
			return nil, fmt.Errorf("server refused module %q", module)
		}
		if strings.Contains(res, RSYNCD_OK) {
			break
		}
	}

	// Send arguments
	buf.Write(attribs.Marshal())
	buf.WriteString(".\n")
	buf.WriteString(module)
	buf.WriteString(path)
	buf.WriteString("\n\n")
	if _, err = conn.Write(buf.Bytes()); err != nil {
		return nil, err
	}

	// read int32 as seed
	seed, err := conn.ReadInt()
	if err != nil {
		return nil, err
	}
	log.Println("SEED", seed)

	// HandShake OK
	log.Println("Handshake completed")

	// Begin to demux
	conn.reader = NewMuxReader(conn.reader)

	// As a client, we need to send filter list
	if err = exclusion.Send(conn); err != nil {
		return nil, err
	}

	if attribs.Sender {
		return &Receiver{
			conn:     conn,
			module:   module,
			path:     path,
			seed:     seed,
			lVer:     int32(PROTOCOL_VERSION),
			rVer:     int32(remoteProtocol),
			storage:  storage,
			callback: callback,
			compress: attribs.Compress,
			level:    attribs.CompressLevel,
		}, nil
	}
	return &Sender{
		conn:     conn,
		module:   module,
		path:     path,
		seed:     seed,
		lVer:     int32(PROTOCOL_VERSION),
		rVer:     int32(remoteProtocol),
		storage:  storage,
		compress: attribs.Compress,
		level:    attribs.CompressLevel,
	}, nil
}

// SshClient starts a remote rsync server over ssh and handshakes on its
// pipes. No daemon greeting here: both sides exchange raw protocol
// versions, then the seed.
func SshClient(storage FS, address string, user string, pwd string, module string, path string, attribs *Attribs, callback Callback) (SendReceiver, error) {
	cmd := "rsync " + strings.ReplaceAll(string(attribs.Marshal()), "\n", " ") + "."
	ssh, err := NewSSH(address, user, pwd, cmd)
	if err != nil {
		return nil, err
	}
	conn := &Conn{
		writer:    ssh,
		reader:    ssh,
		bytespool: make([]byte, 8),
	}

	if callback == nil {
		callback = SimpleCallback{}
	}

	// Handshake
	if err = conn.WriteInt(PROTOCOL_VERSION); err != nil {
		return nil, err
	}
	rver, err := conn.ReadInt()
	if err != nil {
		return nil, err
	}
	seed, err := conn.ReadInt()
	if err != nil {
		return nil, err
	}

	conn.reader = NewMuxReader(conn.reader)

	if attribs.Sender {
		return &Receiver{
			conn:     conn,
			module:   module,
			path:     path,
			seed:     seed,
			lVer:     int32(PROTOCOL_VERSION),
			rVer:     rver,
			storage:  storage,
			callback: callback,
			compress: attribs.Compress,
			level:    attribs.CompressLevel,
		}, nil
	}
	return &Sender{
		conn:     conn,
		module:   module,
		path:     path,
		seed:     seed,
		lVer:     int32(PROTOCOL_VERSION),
		rVer:     rver,
		storage:  storage,
		compress: attribs.Compress,
		level:    attribs.CompressLevel,
	}, nil
}

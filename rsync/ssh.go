package rsync

import (
	"io"

	"golang.org/x/crypto/ssh"
)

// SSH runs a remote rsync server over an ssh session and exposes its
// stdin/stdout as the transport.
type SSH struct {
	client  *ssh.Client
	session *ssh.Session
	stdin   io.WriteCloser
	stdout  io.Reader
}

func NewSSH(address string, username string, pwd string, cmd string) (*SSH, error) {
	config := &ssh.ClientConfig{
		User:            username,
		Auth:            []ssh.AuthMethod{ssh.Password(pwd)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), // TODO: known_hosts lookup
	}
	client, err := ssh.Dial("tcp", address, config)
	if err != nil {
		return nil, err
	}

	session, err := client.NewSession()
	if err != nil {
		client.Close()
		return nil, err
	}

	stdin, err := session.StdinPipe()
	if err != nil {
		client.Close()
		return nil, err
	}
	stdout, err := session.StdoutPipe()
	if err != nil {
		client.Close()
		return nil, err
	}

	// Call remote rsync server; the handshake happens over its pipes
	if err := session.Start(cmd); err != nil {
		client.Close()
		return nil, err
	}

	return &SSH{
		client:  client,
		session: session,
		stdin:   stdin,
		stdout:  stdout,
	}, nil
}

func (s *SSH) Write(p []byte) (n int, err error) {
	return s.stdin.Write(p)
}

func (s *SSH) Read(p []byte) (n int, err error) {
	return s.stdout.Read(p)
}

func (s *SSH) Close() error {
	_ = s.stdin.Close()
	_ = s.session.Close()
	return s.client.Close()
}

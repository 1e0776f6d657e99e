package upstream

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/jlaffaye/ftp"
)

const (
	ftpAnonymousUser = "anonymous"
	ftpAnonymousPass = "guest"
	ftpDefaultPort   = "21"
)

// FTPTransport retrieves raw text from an anonymous FTP mirror.
type FTPTransport struct {
	timeout time.Duration
	dial    func(addr string, opts ...ftp.DialOption) (*ftp.ServerConn, error)
}

// NewFTPTransport creates an FTPTransport whose dial and I/O are bounded by
// timeout. A zero timeout selects DefaultTimeout.
func NewFTPTransport(timeout time.Duration) *FTPTransport {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &FTPTransport{timeout: timeout, dial: ftp.Dial}
}

// Get logs in anonymously and retrieves the URL path. Credentials embedded in
// the URL take precedence over the anonymous login.
func (t *FTPTransport) Get(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	u, path, err := splitMirrorURL(rawURL)
	if err != nil {
		return nil, err
	}
	addr := u.Host
	if u.Port() == "" {
		addr = net.JoinHostPort(u.Hostname(), ftpDefaultPort)
	}

	conn, err := t.dial(addr, ftp.DialWithContext(ctx), ftp.DialWithTimeout(t.timeout))
	if err != nil {
		return nil, fmt.Errorf("ftp dial %s: %w", addr, err)
	}

	user, pass := ftpAnonymousUser, ftpAnonymousPass
	if u.User != nil {
		user = u.User.Username()
		if p, ok := u.User.Password(); ok {
			pass = p
		}
	}
	if err := conn.Login(user, pass); err != nil {
		conn.Quit()
		return nil, fmt.Errorf("ftp login: %w", err)
	}

	resp, err := conn.Retr(path)
	if err != nil {
		conn.Quit()
		return nil, fmt.Errorf("ftp retr %s: %w", path, err)
	}
	return &ftpBody{resp: resp, conn: conn}, nil
}

// ftpBody closes the data connection and then the control connection.
type ftpBody struct {
	resp *ftp.Response
	conn *ftp.ServerConn
}

func (b *ftpBody) Read(p []byte) (int, error) { return b.resp.Read(p) }

func (b *ftpBody) Close() error {
	err := b.resp.Close()
	if qerr := b.conn.Quit(); err == nil {
		err = qerr
	}
	return err
}

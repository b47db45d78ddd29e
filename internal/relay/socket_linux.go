//go:build linux

// Package relay implements the raw non-blocking TCP transport on top of
// golang.org/x/sys/unix.
package relay

import (
	"errors"
	"fmt"
	"net"
	"strconv"

	"golang.org/x/sys/unix"
)

type tcpListener struct {
	fd   int
	addr string
}

type tcpConn struct {
	fd   int
	addr string
}

// Listen binds and listens on host:port with a non-blocking IPv4 socket.
// Any failure is wrapped in a fatal *BindError; there is no retry.
func Listen(host string, port int) (Listener, error) {
	addr := fmt.Sprintf("%s:%d", host, port)

	ip, err := parseIPv4Host(host)
	if err != nil {
		return nil, &BindError{Addr: addr, Err: err}
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, &BindError{Addr: addr, Err: fmt.Errorf("socket: %w", err)}
	}

	// Release the port immediately on restart instead of waiting out TIME_WAIT.
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return nil, &BindError{Addr: addr, Err: fmt.Errorf("setsockopt: %w", err)}
	}

	sa := &unix.SockaddrInet4{Port: port, Addr: ip}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return nil, &BindError{Addr: addr, Err: fmt.Errorf("bind: %w", err)}
	}

	if err := unix.Listen(fd, unix.SOMAXCONN); err != nil {
		unix.Close(fd)
		return nil, &BindError{Addr: addr, Err: fmt.Errorf("listen: %w", err)}
	}

	bound := addr
	if sa, err := unix.Getsockname(fd); err == nil {
		bound = formatSockaddr(sa)
	}

	return &tcpListener{fd: fd, addr: bound}, nil
}

func (l *tcpListener) Fd() int {
	return l.fd
}

func (l *tcpListener) Addr() string {
	return l.addr
}

func (l *tcpListener) Accept() (Conn, error) {
	fd, sa, err := unix.Accept4(l.fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
	if err != nil {
		if isTemporary(err) {
			return nil, ErrWouldBlock
		}
		return nil, fmt.Errorf("relay: accept: %w", err)
	}
	return &tcpConn{fd: fd, addr: formatSockaddr(sa)}, nil
}

func (l *tcpListener) Close() error {
	return unix.Close(l.fd)
}

func (c *tcpConn) Fd() int {
	return c.fd
}

func (c *tcpConn) RemoteAddr() string {
	return c.addr
}

func (c *tcpConn) Recv(p []byte) (int, error) {
	n, err := unix.Read(c.fd, p)
	if err != nil {
		if isTemporary(err) {
			return 0, ErrWouldBlock
		}
		return 0, fmt.Errorf("relay: recv %s: %w", c.addr, err)
	}
	// n == 0 with no error is orderly peer close.
	return n, nil
}

func (c *tcpConn) Send(p []byte) (int, error) {
	n, err := unix.Write(c.fd, p)
	if err != nil {
		if isTemporary(err) {
			return 0, ErrWouldBlock
		}
		return 0, fmt.Errorf("relay: send %s: %w", c.addr, err)
	}
	return n, nil
}

func (c *tcpConn) Close() error {
	return unix.Close(c.fd)
}

func parseIPv4Host(host string) ([4]byte, error) {
	var ip [4]byte
	if host == "" || host == "0.0.0.0" {
		return ip, nil
	}
	parsed := net.ParseIP(host)
	if parsed == nil {
		return ip, fmt.Errorf("invalid host %q", host)
	}
	v4 := parsed.To4()
	if v4 == nil {
		return ip, fmt.Errorf("host %q is not an IPv4 address", host)
	}
	copy(ip[:], v4)
	return ip, nil
}

func formatSockaddr(sa unix.Sockaddr) string {
	switch sa := sa.(type) {
	case *unix.SockaddrInet4:
		return net.IP(sa.Addr[:]).String() + ":" + strconv.Itoa(sa.Port)
	case *unix.SockaddrInet6:
		return net.JoinHostPort(net.IP(sa.Addr[:]).String(), strconv.Itoa(sa.Port))
	default:
		return "unknown"
	}
}

func isTemporary(err error) bool {
	return errors.Is(err, unix.EAGAIN) ||
		errors.Is(err, unix.EWOULDBLOCK) ||
		errors.Is(err, unix.EINTR)
}

//go:build linux

// Package relay implements the readiness poller with level-triggered epoll.
package relay

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

type epollPoller struct {
	epfd   int
	events []unix.EpollEvent
}

// NewPoller creates the epoll instance backing the reactor loop.
func NewPoller() (Poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("relay: epoll create: %w", err)
	}
	return &epollPoller{
		epfd:   epfd,
		events: make([]unix.EpollEvent, 128),
	}, nil
}

func (p *epollPoller) Add(fd int) error {
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(fd)}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return fmt.Errorf("relay: epoll add fd %d: %w", fd, err)
	}
	return nil
}

func (p *epollPoller) SetWritable(fd int, on bool) error {
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(fd)}
	if on {
		ev.Events |= unix.EPOLLOUT
	}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, &ev); err != nil {
		return fmt.Errorf("relay: epoll mod fd %d: %w", fd, err)
	}
	return nil
}

func (p *epollPoller) Remove(fd int) error {
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return fmt.Errorf("relay: epoll del fd %d: %w", fd, err)
	}
	return nil
}

func (p *epollPoller) Wait(evs []Event, timeout time.Duration) (int, error) {
	if len(p.events) < len(evs) {
		p.events = make([]unix.EpollEvent, len(evs))
	}

	msec := int(timeout / time.Millisecond)
	if timeout < 0 {
		msec = -1
	}

	n, err := unix.EpollWait(p.epfd, p.events[:len(evs)], msec)
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return 0, nil
		}
		return 0, fmt.Errorf("relay: epoll wait: %w", err)
	}

	for i := 0; i < n; i++ {
		raw := p.events[i]
		evs[i] = Event{
			FD:       int(raw.Fd),
			Readable: raw.Events&unix.EPOLLIN != 0,
			Writable: raw.Events&unix.EPOLLOUT != 0,
			Closed:   raw.Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0,
		}
	}
	return n, nil
}

func (p *epollPoller) Close() error {
	return unix.Close(p.epfd)
}

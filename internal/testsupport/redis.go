package testsupport

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// RedisMessage is one PUBLISH seen by the fake server.
type RedisMessage struct {
	Channel string
	Payload string
}

// Redis is an in-process server speaking enough RESP2 for the event
// publisher and subscriber: PING, PUBLISH, SUBSCRIBE and connection setup.
// Unknown commands answer +OK.
type Redis struct {
	ln net.Listener
	wg sync.WaitGroup

	mu        sync.Mutex
	conns     map[*redisConn]struct{}
	subs      map[string][]*redisConn
	published []RedisMessage
}

type redisConn struct {
	net.Conn
	mu sync.Mutex
}

func (c *redisConn) send(reply string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = io.WriteString(c.Conn, reply)
}

// StartRedis listens on a loopback port until the test ends.
func StartRedis(t testing.TB) *Redis {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("cannot listen for fake redis: %v", err)
	}
	r := &Redis{
		ln:    ln,
		conns: make(map[*redisConn]struct{}),
		subs:  make(map[string][]*redisConn),
	}
	r.wg.Add(1)
	go r.accept()
	t.Cleanup(r.close)
	return r
}

// Addr is the host:port to dial.
func (r *Redis) Addr() string {
	return r.ln.Addr().String()
}

// Published returns every message received so far.
func (r *Redis) Published() []RedisMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]RedisMessage(nil), r.published...)
}

// Subscribers counts connections subscribed to channel.
func (r *Redis) Subscribers(channel string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs[channel])
}

func (r *Redis) accept() {
	defer r.wg.Done()
	for {
		conn, err := r.ln.Accept()
		if err != nil {
			return
		}
		c := &redisConn{Conn: conn}
		r.mu.Lock()
		r.conns[c] = struct{}{}
		r.mu.Unlock()
		r.wg.Add(1)
		go r.serve(c)
	}
}

func (r *Redis) close() {
	_ = r.ln.Close()
	r.mu.Lock()
	for c := range r.conns {
		_ = c.Close()
	}
	r.mu.Unlock()
	r.wg.Wait()
}

func (r *Redis) serve(c *redisConn) {
	defer r.wg.Done()
	defer r.drop(c)
	reader := bufio.NewReader(c)
	for {
		args, err := readRESPCommand(reader)
		if err != nil {
			return
		}
		if len(args) == 0 {
			continue
		}
		switch strings.ToUpper(args[0]) {
		case "HELLO":
			c.send("-ERR unknown command 'HELLO'\r\n")
		case "PING":
			c.send("+PONG\r\n")
		case "PUBLISH":
			if len(args) != 3 {
				c.send("-ERR wrong number of arguments for 'publish' command\r\n")
				continue
			}
			c.send(":" + strconv.Itoa(r.publish(args[1], args[2])) + "\r\n")
		case "SUBSCRIBE":
			for i, channel := range args[1:] {
				r.mu.Lock()
				r.subs[channel] = append(r.subs[channel], c)
				r.mu.Unlock()
				c.send(respArray([]string{"subscribe", channel}, i+1))
			}
		default:
			c.send("+OK\r\n")
		}
	}
}

func (r *Redis) publish(channel, payload string) int {
	r.mu.Lock()
	r.published = append(r.published, RedisMessage{Channel: channel, Payload: payload})
	targets := append([]*redisConn(nil), r.subs[channel]...)
	r.mu.Unlock()
	for _, sub := range targets {
		sub.send(respArray([]string{"message", channel, payload}))
	}
	return len(targets)
}

func (r *Redis) drop(c *redisConn) {
	_ = c.Close()
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, c)
	for channel, subs := range r.subs {
		kept := subs[:0]
		for _, s := range subs {
			if s != c {
				kept = append(kept, s)
			}
		}
		r.subs[channel] = kept
	}
}

// respArray renders a RESP array of bulk strings followed by integers.
func respArray(bulks []string, ints ...int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*%d\r\n", len(bulks)+len(ints))
	for _, item := range bulks {
		fmt.Fprintf(&b, "$%d\r\n%s\r\n", len(item), item)
	}
	for _, n := range ints {
		fmt.Fprintf(&b, ":%d\r\n", n)
	}
	return b.String()
}

func readRESPCommand(reader *bufio.Reader) ([]string, error) {
	line, err := readRESPLine(reader)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(line, "*") {
		return strings.Fields(line), nil
	}
	n, err := strconv.Atoi(line[1:])
	if err != nil {
		return nil, fmt.Errorf("bad array header %q", line)
	}
	args := make([]string, 0, n)
	for i := 0; i < n; i++ {
		header, err := readRESPLine(reader)
		if err != nil {
			return nil, err
		}
		if !strings.HasPrefix(header, "$") {
			return nil, fmt.Errorf("bad bulk header %q", header)
		}
		size, err := strconv.Atoi(header[1:])
		if err != nil {
			return nil, fmt.Errorf("bad bulk length %q", header)
		}
		buf := make([]byte, size+2)
		if _, err := io.ReadFull(reader, buf); err != nil {
			return nil, err
		}
		args = append(args, string(buf[:size]))
	}
	return args, nil
}

func readRESPLine(reader *bufio.Reader) (string, error) {
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

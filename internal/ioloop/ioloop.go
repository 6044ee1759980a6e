// Package ioloop is the line tokenizer and reply formatter the spec
// calls out as an external collaborator, deliberately kept thin: it
// owns none of the engine's semantics. Grounded on
// wegjgwioj-myRedis/server/server.go's per-connection read/write loop,
// adapted from a net.Conn request/reply loop to a single
// stdin/stdout session, matching spec §5's single-threaded,
// synchronous, blocking model (no goroutine per connection needed —
// there is only ever one "connection").
package ioloop

import (
	"bufio"
	"io"
	"strings"

	"github.com/wegjgwioj/ordkv/internal/store"
)

// Run reads one command per line from r, dispatches it through d, and
// writes the reply lines to w. It returns when r is exhausted, an I/O
// error occurs, or EXIT is dispatched.
func Run(r io.Reader, w io.Writer, d *store.Dispatcher) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	out := bufio.NewWriter(w)
	defer out.Flush()

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		reply := d.Dispatch(strings.Fields(line))
		if reply == nil {
			continue
		}
		for _, l := range reply.Lines() {
			if _, err := out.WriteString(l); err != nil {
				return err
			}
			if _, err := out.WriteString("\n"); err != nil {
				return err
			}
		}
		if err := out.Flush(); err != nil {
			return err
		}
		if store.IsExit(reply) {
			return nil
		}
	}
	return scanner.Err()
}

package store

import (
	"strconv"
	"strings"
)

// Dispatcher maps external command tokens onto Engine operations and
// canonical reply lines. It never sees raw input lines or writes to an
// output stream — that tokenizing/formatting is the ioloop's job
// (spec §6 calls it out as an external collaborator).
type Dispatcher struct {
	Engine *Engine
}

func NewDispatcher(e *Engine) *Dispatcher {
	return &Dispatcher{Engine: e}
}

// Dispatch routes one already-tokenized command line. tokens[0] is the
// command name (case-insensitive); the rest are case-sensitive
// arguments.
func (d *Dispatcher) Dispatch(tokens []string) Reply {
	if len(tokens) == 0 {
		return nil
	}
	name := strings.ToUpper(tokens[0])
	args := tokens[1:]

	switch name {
	case "PING":
		return Status("PONG")

	case "SET":
		if len(args) < 2 {
			return errInvalid()
		}
		key := args[0]
		value := strings.Join(args[1:], " ")
		if err := d.Engine.Set(key, value); err != nil {
			return Err(err.Error())
		}
		return Ok

	case "GET":
		if len(args) != 1 {
			return errInvalid()
		}
		v, ok := d.Engine.Get(args[0])
		if !ok {
			return Nil
		}
		return Status(v)

	case "DEL":
		if len(args) != 1 {
			return errInvalid()
		}
		ok, err := d.Engine.Del(args[0])
		if err != nil {
			return Err(err.Error())
		}
		if ok {
			return Int(1)
		}
		return Int(0)

	case "EXISTS":
		if len(args) != 1 {
			return errInvalid()
		}
		if d.Engine.Exists(args[0]) {
			return Int(1)
		}
		return Int(0)

	case "MSET":
		if len(args) < 2 {
			return errInvalid()
		}
		if len(args)%2 != 0 {
			return Err("wrong number of arguments for MSET")
		}
		if err := d.Engine.MSet(args); err != nil {
			return Err(err.Error())
		}
		return Ok

	case "MGET":
		if len(args) < 1 {
			return errInvalid()
		}
		results := d.Engine.MGet(args)
		lines := make([]string, len(results))
		for i, r := range results {
			if r.Found {
				lines[i] = r.Value
			} else {
				lines[i] = "nil"
			}
		}
		return Multi(lines)

	case "BEGIN":
		if len(args) != 0 {
			return errInvalid()
		}
		if err := d.Engine.Begin(); err != nil {
			return Err(err.Error())
		}
		return Ok

	case "COMMIT":
		if len(args) != 0 {
			return errInvalid()
		}
		if err := d.Engine.Commit(); err != nil {
			return Err(err.Error())
		}
		return Ok

	case "ABORT":
		if len(args) != 0 {
			return errInvalid()
		}
		if err := d.Engine.Abort(); err != nil {
			return Err(err.Error())
		}
		return Ok

	case "EXPIRE":
		if len(args) != 2 {
			return errInvalid()
		}
		ms, perr := strconv.ParseInt(args[1], 10, 64)
		if perr != nil {
			return Err("invalid TTL value")
		}
		armed, err := d.Engine.Expire(args[0], ms)
		if err != nil {
			return Err(err.Error())
		}
		if armed {
			return Int(1)
		}
		return Int(0)

	case "TTL":
		if len(args) != 1 {
			return errInvalid()
		}
		return Int(d.Engine.TTL(args[0]))

	case "PERSIST":
		if len(args) != 1 {
			return errInvalid()
		}
		ok, err := d.Engine.Persist(args[0])
		if err != nil {
			return Err(err.Error())
		}
		if ok {
			return Int(1)
		}
		return Int(0)

	case "RANGE":
		if len(args) != 2 {
			return errInvalid()
		}
		keys := d.Engine.Range(args[0], args[1])
		lines := append(append([]string{}, keys...), "END")
		return Multi(lines)

	case "EXIT":
		if len(args) != 0 {
			return errInvalid()
		}
		return Exit

	default:
		return errInvalid()
	}
}

func errInvalid() Reply {
	return Err("invalid command or arguments")
}

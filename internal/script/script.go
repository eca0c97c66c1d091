// Package script runs Lua edit scripts against a MultiBuffer.
//
// Each run gets a fresh, sandboxed Lua state with a global `mb` table
// bound to the target view. Offsets crossing the boundary are 0-based
// logical byte offsets, exactly as the Go API counts them; `find`
// returns half-open {start, stop} ranges that feed straight back into
// `edit`. Scripts replacing several matches should work from the last
// match backward so earlier offsets stay valid.
//
//	local ms = mb.find("[0-9]+")
//	for i = #ms, 1, -1 do
//		mb.edit(ms[i].start, ms[i].stop, "N")
//	end
package script

import (
	"fmt"
	"os"
	"regexp"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/dshills/weave/internal/multibuffer"
	"github.com/dshills/weave/internal/textbuf"
)

// Runner executes scripts against one MultiBuffer. Runs are isolated:
// globals set by one script are gone in the next.
type Runner struct {
	m   *multibuffer.MultiBuffer
	log *zap.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(r *Runner) {
		if log != nil {
			r.log = log
		}
	}
}

// New creates a Runner bound to m.
func New(m *multibuffer.MultiBuffer, opts ...Option) *Runner {
	r := &Runner{m: m, log: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes Lua source. Script errors, including errors raised by mb
// functions, come back as Go errors carrying the Lua traceback.
func (r *Runner) Run(source string) error {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()

	openSafeLibraries(L)
	r.register(L)

	r.log.Debug("running script", zap.Int("bytes", len(source)))
	if err := doWithRecovery(func() error { return L.DoString(source) }); err != nil {
		return fmt.Errorf("script: %w", err)
	}
	return nil
}

// RunFile executes the Lua file at path.
func (r *Runner) RunFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("script: %w", err)
	}
	return r.Run(string(data))
}

// openSafeLibraries opens base, table, string, and math. io, os, debug,
// and package stay closed: edit scripts talk to files through the host,
// not around it.
func openSafeLibraries(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
}

func doWithRecovery(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	return fn()
}

func (r *Runner) register(L *lua.LState) {
	mod := L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"len":        r.luaLen,
		"line_count": r.luaLineCount,
		"version":    r.luaVersion,
		"text":       r.luaText,
		"excerpts":   r.luaExcerpts,
		"edit":       r.luaEdit,
		"insert":     r.luaInsert,
		"find":       r.luaFind,
	})
	L.SetGlobal("mb", mod)
}

func (r *Runner) luaLen(L *lua.LState) int {
	L.Push(lua.LNumber(r.m.Len()))
	return 1
}

func (r *Runner) luaLineCount(L *lua.LState) int {
	L.Push(lua.LNumber(r.m.LineCount()))
	return 1
}

func (r *Runner) luaVersion(L *lua.LState) int {
	L.Push(lua.LNumber(r.m.Version()))
	return 1
}

// luaText returns the whole document, or the given half-open range
// clamped to it.
func (r *Runner) luaText(L *lua.LState) int {
	if L.GetTop() == 0 {
		L.Push(lua.LString(r.m.Text()))
		return 1
	}
	start := L.CheckInt(1)
	stop := L.CheckInt(2)
	L.Push(lua.LString(r.m.TextRange(textbuf.ByteOffset(start), textbuf.ByteOffset(stop))))
	return 1
}

// luaExcerpts returns an array of {id, buffer, start, stop, read_only}
// in display order.
func (r *Runner) luaExcerpts(L *lua.LState) int {
	infos := r.m.Excerpts()
	arr := L.NewTable()
	for _, info := range infos {
		t := L.NewTable()
		t.RawSetString("id", lua.LNumber(info.ID))
		t.RawSetString("buffer", lua.LString(info.BufferID.String()))
		t.RawSetString("start", lua.LNumber(info.LogicalRange.Start))
		t.RawSetString("stop", lua.LNumber(info.LogicalRange.End))
		t.RawSetString("read_only", lua.LBool(info.ReadOnly))
		arr.Append(t)
	}
	L.Push(arr)
	return 1
}

// luaEdit replaces [start, stop) with text and returns the new version.
func (r *Runner) luaEdit(L *lua.LState) int {
	start := L.CheckInt(1)
	stop := L.CheckInt(2)
	text := L.CheckString(3)

	outcome, err := r.m.Edit(multibuffer.Range{
		Start: textbuf.ByteOffset(start),
		End:   textbuf.ByteOffset(stop),
	}, text)
	if err != nil {
		L.RaiseError("edit: %v", err)
		return 0
	}
	L.Push(lua.LNumber(outcome.Version))
	return 1
}

// luaInsert inserts text at the offset and returns the new version.
func (r *Runner) luaInsert(L *lua.LState) int {
	off := L.CheckInt(1)
	text := L.CheckString(2)

	outcome, err := r.m.Insert(textbuf.ByteOffset(off), text)
	if err != nil {
		L.RaiseError("insert: %v", err)
		return 0
	}
	L.Push(lua.LNumber(outcome.Version))
	return 1
}

// luaFind matches a Go regular expression against the document and
// returns an array of {start, stop} ranges.
func (r *Runner) luaFind(L *lua.LState) int {
	pattern := L.CheckString(1)
	re, err := regexp.Compile(pattern)
	if err != nil {
		L.RaiseError("find: %v", err)
		return 0
	}

	arr := L.NewTable()
	for _, loc := range re.FindAllStringIndex(r.m.Text(), -1) {
		t := L.NewTable()
		t.RawSetString("start", lua.LNumber(loc[0]))
		t.RawSetString("stop", lua.LNumber(loc[1]))
		arr.Append(t)
	}
	L.Push(arr)
	return 1
}

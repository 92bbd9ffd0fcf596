// Package interpreter evaluates verb source (an internal/ast node tree)
// against a mutable evaluation context: lexical scope, shared gas, the
// call stack, and the notification sink. Opcode handlers registered in
// internal/opcode receive this package's *Ctx through the opcode.Context
// interface.
package interpreter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rakunlabs/moo/internal/capability"
	"github.com/rakunlabs/moo/internal/opcode"
	"github.com/rakunlabs/moo/internal/repository"
	"github.com/worldline-go/klient"
)

// ErrGasExhausted is raised when a verb invocation's gas budget reaches zero.
var ErrGasExhausted = errors.New("gas exhausted")

// ErrUnknownOpcode is raised when a call node names an unregistered opcode.
var ErrUnknownOpcode = errors.New("unknown opcode")

// ErrVerbNotFound is raised by the verb dispatcher when prototype walk
// reaches null without finding the requested verb.
var ErrVerbNotFound = errors.New("verb_not_found")

// Frame is one entry in the call stack, for diagnostics on error.
type Frame struct {
	Verb string
	Args []any
}

// Lambda is the opaque value produced by lambda(argNames, body); only Apply
// understands it.
type Lambda struct {
	ArgNames []string
	Body     any
	Captured map[string]any
}

// Deps are the injected dependencies shared by every Ctx descended from a
// single root invocation.
type Deps struct {
	Repo       *repository.Repository
	Capability *capability.Kernel
	FSRoot     string
	HTTPClient *klient.Client
	Clock      func() time.Time
	RNG        *rand.Rand
	BotID      int64
}

// Ctx is one lexical/call-stack frame of verb evaluation. A fresh Ctx is
// built by the verb dispatcher for a root invocation, and by call/sudo for
// each nested invocation.
type Ctx struct {
	deps *Deps
	ctx  context.Context

	callerID int64
	thisID   int64
	args     []any
	vars     map[string]any

	gas       *int64
	warnings  *[]string
	stack     []Frame
	sendFn    func(method string, params map[string]any)
	forwardAs *int64 // when non-nil, send(...) is rewritten to forward(target=*forwardAs,...)
}

// New builds a root context for a verb dispatcher invocation: caller and
// this both reference entityID, gas is freshly allocated at gasLimit. The
// invocation itself counts as the first call-stack frame, so a root-level
// gas exhaustion still reports a stack of length 1.
func New(ctx context.Context, deps *Deps, entityID int64, verbName string, args []any, gasLimit int64, send func(method string, params map[string]any)) *Ctx {
	gas := gasLimit
	warnings := make([]string, 0)

	return &Ctx{
		deps:     deps,
		ctx:      ctx,
		callerID: entityID,
		thisID:   entityID,
		args:     args,
		vars:     make(map[string]any),
		gas:      &gas,
		warnings: &warnings,
		stack:    []Frame{{Verb: verbName, Args: args}},
		sendFn:   send,
	}
}

// Warnings returns the warnings accumulated on this context's root. Nested
// Ctx values created by Call/Sudo/InvokeVerb share the same pointer.
func (c *Ctx) Warnings() []string {
	return *c.warnings
}

// Stack returns the call frames active at c, outermost first.
func (c *Ctx) Stack() []Frame {
	return append([]Frame{}, c.stack...)
}

// child builds a new Ctx for a nested verb invocation, sharing gas and
// warnings by reference per spec's "deep recursion counts toward caller's
// budget" rule, and extending the stack with frame.
func (c *Ctx) child(callerID, thisID int64, args []any, frame Frame) *Ctx {
	return &Ctx{
		deps:      c.deps,
		ctx:       c.ctx,
		callerID:  callerID,
		thisID:    thisID,
		args:      args,
		vars:      make(map[string]any),
		gas:       c.gas,
		warnings:  c.warnings,
		stack:     append(append([]Frame{}, c.stack...), frame),
		sendFn:    c.sendFn,
		forwardAs: c.forwardAs,
	}
}

func (c *Ctx) CallerID() int64 { return c.callerID }
func (c *Ctx) ThisID() int64   { return c.thisID }
func (c *Ctx) Args() []any     { return c.args }

func (c *Ctx) Arg(i int) (any, bool) {
	if i < 0 || i >= len(c.args) {
		return nil, false
	}

	return c.args[i], true
}

func (c *Ctx) GetVar(name string) (any, bool) {
	v, ok := c.vars[name]

	return v, ok
}

func (c *Ctx) LetVar(name string, val any) {
	c.vars[name] = val
}

func (c *Ctx) SetVar(name string, val any) bool {
	if _, ok := c.vars[name]; !ok {
		return false
	}

	c.vars[name] = val

	return true
}

func (c *Ctx) Warn(msg string) {
	*c.warnings = append(*c.warnings, msg)
}

func (c *Ctx) Log(msg string) {
	fmt.Fprintln(os.Stderr, "verb log:", msg) //nolint:forbidigo
}

// Send pushes a notification. Inside a sudo impersonation originating from
// the Bot binding, every send is rewritten per spec §4.4 so the bridge can
// route the reply back to the original caller's session.
func (c *Ctx) Send(method string, params map[string]any) {
	if c.sendFn == nil {
		return
	}

	if c.forwardAs != nil {
		c.sendFn("forward", map[string]any{
			"target":  *c.forwardAs,
			"type":    method,
			"payload": params,
		})

		return
	}

	c.sendFn(method, params)
}

func (c *Ctx) Now() time.Time {
	if c.deps.Clock != nil {
		return c.deps.Clock()
	}

	return time.Now().UTC()
}

func (c *Ctx) Rand() *rand.Rand {
	return c.deps.RNG
}

func (c *Ctx) Repo() *repository.Repository       { return c.deps.Repo }
func (c *Ctx) Capability() *capability.Kernel     { return c.deps.Capability }

// Eval evaluates a single AST node through the shared registry, spending
// exactly one unit of gas per node regardless of whether it is a literal or
// a call — a long sequence of literals exhausts gas just as a deep call
// tree does.
func (c *Ctx) Eval(node any) (any, error) {
	if *c.gas <= 0 {
		return nil, ErrGasExhausted
	}
	*c.gas--

	name, rawArgs, isCall := astCall(node)
	if !isCall {
		return node, nil
	}

	entry, ok := opcode.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownOpcode, name)
	}

	if entry.Mode == opcode.Lazy {
		return entry.Handler(c, rawArgs)
	}

	evaluated := make([]any, len(rawArgs))
	for i, a := range rawArgs {
		v, err := c.Eval(a)
		if err != nil {
			return nil, err
		}
		evaluated[i] = v
	}

	return entry.Handler(c, evaluated)
}

func astCall(node any) (string, []any, bool) {
	arr, ok := node.([]any)
	if !ok || len(arr) == 0 {
		return "", nil, false
	}

	name, ok := arr[0].(string)
	if !ok {
		return "", nil, false
	}

	return name, arr[1:], true
}

// ─── verb invocation primitives ───

// InvokeVerb resolves verbName on thisID up the prototype chain and
// evaluates it with the given caller/this pair, sharing gas and warnings.
func (c *Ctx) InvokeVerb(callerID, thisID int64, verbName string, argVals []any) (any, error) {
	ownerID, verb, err := c.deps.Repo.ResolveVerb(c.ctx, thisID, verbName)
	if err != nil {
		return nil, err
	}
	if verb == nil {
		return nil, fmt.Errorf("%w: %q on entity %d", ErrVerbNotFound, verbName, thisID)
	}

	child := c.child(callerID, thisID, argVals, Frame{Verb: verbName, Args: argVals})

	result, err := child.Eval(verb.Source)
	if err != nil {
		return nil, fmt.Errorf("verb %q (owner %d): %w", verbName, ownerID, err)
	}

	return result, nil
}

// Call implements the call opcode: caller is unchanged, this becomes
// targetID.
func (c *Ctx) Call(targetID int64, verbName string, argVals []any) (any, error) {
	return c.InvokeVerb(c.callerID, targetID, verbName, argVals)
}

// Sudo implements the sudo opcode: requires a sys.sudo capability owned by
// ThisID(), then fully impersonates targetID (caller=this=targetID). If
// the context's original caller is the Bot binding, every send from within
// the impersonated verb is rewritten to a forward notification so the
// bridge can route the reply to the right remote channel.
func (c *Ctx) Sudo(capID int64, targetID int64, verbName string, argVals []any) (any, error) {
	if _, err := c.deps.Capability.Check(c.ctx, capID, c.thisID, capability.TypeSysSudo, nil); err != nil {
		return nil, err
	}

	ownerID, verb, err := c.deps.Repo.ResolveVerb(c.ctx, targetID, verbName)
	if err != nil {
		return nil, err
	}
	if verb == nil {
		return nil, fmt.Errorf("%w: %q on entity %d", ErrVerbNotFound, verbName, targetID)
	}

	child := c.child(targetID, targetID, argVals, Frame{Verb: verbName, Args: argVals})

	rewriteForward := c.callerID == c.deps.BotID
	if rewriteForward {
		forwardTarget := targetID
		child.forwardAs = &forwardTarget
	}

	result, err := child.Eval(verb.Source)
	if err != nil {
		return nil, fmt.Errorf("sudo verb %q (owner %d): %w", verbName, ownerID, err)
	}

	return result, nil
}

// Schedule defers verbName on ThisID() by delayMs milliseconds.
func (c *Ctx) Schedule(verbName string, argVals []any, delayMs int64) (int64, error) {
	executeAt := c.Now().Add(time.Duration(delayMs) * time.Millisecond).Unix()

	return c.deps.Repo.ScheduleTask(c.ctx, c.thisID, verbName, argVals, executeAt)
}

// ─── lambdas ───

func (c *Ctx) NewLambda(argNames []string, body any) any {
	captured := make(map[string]any, len(c.vars))
	for k, v := range c.vars {
		captured[k] = v
	}

	return &Lambda{ArgNames: argNames, Body: body, Captured: captured}
}

func (c *Ctx) Apply(fn any, argVals []any) (any, error) {
	lambda, ok := fn.(*Lambda)
	if !ok {
		return nil, fmt.Errorf("apply: value is not a lambda")
	}

	child := c.child(c.callerID, c.thisID, argVals, Frame{Verb: "<lambda>", Args: argVals})
	for k, v := range lambda.Captured {
		child.vars[k] = v
	}
	for i, name := range lambda.ArgNames {
		if i < len(argVals) {
			child.vars[name] = argVals[i]
		} else {
			child.vars[name] = nil
		}
	}

	return child.Eval(lambda.Body)
}

// ─── filesystem, gated by fs.read/fs.write capabilities ───

func (c *Ctx) resolvePath(path string) (string, error) {
	cleaned := filepath.Clean("/" + path)
	full := filepath.Join(c.deps.FSRoot, cleaned)

	if !strings.HasPrefix(full, filepath.Clean(c.deps.FSRoot)) {
		return "", fmt.Errorf("path %q escapes filesystem root", path)
	}

	return full, nil
}

func (c *Ctx) FSRead(capID int64, path string) (string, error) {
	if _, err := c.deps.Capability.Check(c.ctx, capID, c.thisID, capability.TypeFSRead, capability.MatchPathPrefix(path)); err != nil {
		return "", err
	}

	full, err := c.resolvePath(path)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(full)
	if err != nil {
		return "", fmt.Errorf("fs.read %q: %w", path, err)
	}

	return string(data), nil
}

func (c *Ctx) FSWrite(capID int64, path string, content string) error {
	if _, err := c.deps.Capability.Check(c.ctx, capID, c.thisID, capability.TypeFSWrite, capability.MatchPathPrefix(path)); err != nil {
		return err
	}

	full, err := c.resolvePath(path)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("fs.write %q: %w", path, err)
	}

	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		return fmt.Errorf("fs.write %q: %w", path, err)
	}

	return nil
}

func (c *Ctx) FSList(capID int64, path string) ([]string, error) {
	if _, err := c.deps.Capability.Check(c.ctx, capID, c.thisID, capability.TypeFSRead, capability.MatchPathPrefix(path)); err != nil {
		return nil, err
	}

	full, err := c.resolvePath(path)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(full)
	if err != nil {
		return nil, fmt.Errorf("fs.list %q: %w", path, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}

	return names, nil
}

// ─── HTTP, gated by net.http.read/net.http.write capabilities ───

func (c *Ctx) httpClient() *klient.Client {
	if c.deps.HTTPClient != nil {
		return c.deps.HTTPClient
	}

	client, _ := klient.New(klient.WithDisableBaseURLCheck(true), klient.WithDisableEnvValues(true))

	return client
}

func (c *Ctx) HTTPGet(capID int64, rawURL string) (map[string]any, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("net.http.get: %w", err)
	}

	if _, err := c.deps.Capability.Check(c.ctx, capID, c.thisID, capability.TypeNetHTTPRead, capability.MatchHostSuffix(u.Host)); err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("net.http.get: %w", err)
	}

	return c.doHTTP(req)
}

func (c *Ctx) HTTPPost(capID int64, rawURL string, body any) (map[string]any, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("net.http.post: %w", err)
	}

	if _, err := c.deps.Capability.Check(c.ctx, capID, c.thisID, capability.TypeNetHTTPWrite, capability.MatchHostSuffix(u.Host)); err != nil {
		return nil, err
	}

	bodyText, ok := body.(string)
	if !ok {
		bodyText = fmt.Sprintf("%v", body)
	}

	req, err := http.NewRequest(http.MethodPost, rawURL, strings.NewReader(bodyText))
	if err != nil {
		return nil, fmt.Errorf("net.http.post: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.doHTTP(req)
}

func (c *Ctx) doHTTP(req *http.Request) (map[string]any, error) {
	resp, err := c.httpClient().HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	return map[string]any{
		"status": resp.StatusCode,
		"body":   string(data),
	}, nil
}

var _ opcode.Context = (*Ctx)(nil)

// Package dispatcher implements the public verb entry point used by the
// session layer and the scheduler: resolve a verb up the prototype chain,
// build a root evaluation context, run it, and translate any failure into
// the apperr taxonomy.
package dispatcher

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/rakunlabs/moo/internal/apperr"
	"github.com/rakunlabs/moo/internal/capability"
	"github.com/rakunlabs/moo/internal/interpreter"
	"github.com/rakunlabs/moo/internal/repository"
	"github.com/worldline-go/klient"
)

// SendFunc pushes a notification onto an entity's outbound session queue.
type SendFunc func(method string, params map[string]any)

// Dispatcher owns the dependencies every root verb invocation shares.
type Dispatcher struct {
	Repo       *repository.Repository
	Capability *capability.Kernel
	FSRoot     string
	HTTPClient *klient.Client
	GasLimit   int64
	BotID      int64
}

// New builds a Dispatcher. httpClient may be nil, in which case net.*
// opcode handlers fall back to a conservative default client per call.
func New(repo *repository.Repository, kernel *capability.Kernel, fsRoot string, httpClient *klient.Client, gasLimit, botID int64) *Dispatcher {
	return &Dispatcher{
		Repo:       repo,
		Capability: kernel,
		FSRoot:     fsRoot,
		HTTPClient: httpClient,
		GasLimit:   gasLimit,
		BotID:      botID,
	}
}

// Result is the outcome of a verb invocation: its return value, and every
// warning raised along the way.
type Result struct {
	Value    any
	Warnings []string
}

// Execute resolves verbName on entityID up the prototype chain and runs it
// with caller=this=entityID. send receives every notification pushed via
// the send opcode, already rewritten for forward if applicable.
func (d *Dispatcher) Execute(ctx context.Context, entityID int64, verbName string, argList []any, send SendFunc) (*Result, error) {
	_, verb, err := d.Repo.ResolveVerb(ctx, entityID, verbName)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "resolve verb", err)
	}
	if verb == nil {
		return nil, apperr.New(apperr.KindVerbNotFound, verbName)
	}

	deps := &interpreter.Deps{
		Repo:       d.Repo,
		Capability: d.Capability,
		FSRoot:     d.FSRoot,
		HTTPClient: d.HTTPClient,
		Clock:      func() time.Time { return time.Now().UTC() },
		RNG:        rand.New(rand.NewSource(time.Now().UnixNano())),
		BotID:      d.BotID,
	}

	gasLimit := d.GasLimit
	if gasLimit <= 0 {
		gasLimit = 10000
	}

	sendFn := func(method string, params map[string]any) {
		if send != nil {
			send(method, params)
		}
	}

	rootCtx := interpreter.New(ctx, deps, entityID, verbName, argList, gasLimit, sendFn)

	value, err := rootCtx.Eval(verb.Source)
	if err != nil {
		return nil, translateError(err, rootCtx)
	}

	return &Result{Value: value, Warnings: rootCtx.Warnings()}, nil
}

func translateError(err error, ctx *interpreter.Ctx) error {
	kind := apperr.KindScriptError
	if errors.Is(err, interpreter.ErrGasExhausted) {
		kind = apperr.KindGasExhausted
	}

	stack := make([]apperr.Frame, len(ctx.Stack()))
	for i, f := range ctx.Stack() {
		stack[i] = apperr.Frame{Verb: f.Verb, Args: f.Args}
	}

	return apperr.Wrap(kind, "verb_error", err).WithStack(stack)
}

// Package capability implements the capability-based security kernel:
// unforgeable tokens that gate access to sensitive opcodes. A capability is
// a row owned by exactly one entity; possession, not identity, authorises
// the gated operation.
package capability

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"github.com/rakunlabs/moo/internal/entity"
	"github.com/rakunlabs/moo/internal/repository"
)

// Built-in capability types named by spec.
const (
	TypeSysCreate     = "sys.create"
	TypeSysSudo       = "sys.sudo"
	TypeSysMint       = "sys.mint"
	TypeEntityControl = "entity.control"
	TypeFSRead        = "fs.read"
	TypeFSWrite       = "fs.write"
	TypeNetHTTPRead   = "net.http.read"
	TypeNetHTTPWrite  = "net.http.write"
)

// ErrDenied is raised by Check when a capability fails any predicate step.
var ErrDenied = errors.New("capability denied")

// MatchFunc evaluates a capability's params against the gated operation's
// target. Returning false fails the check with ErrDenied.
type MatchFunc func(params map[string]any) bool

// Kernel mints, delegates, transfers, and checks capabilities against the
// repository's capability rows.
type Kernel struct {
	repo *repository.Repository
}

func New(repo *repository.Repository) *Kernel {
	return &Kernel{repo: repo}
}

// Mint creates a new capability of typ, owned by callerID. authorityID must
// reference a sys.mint capability owned by callerID whose params.namespace
// is "*" or a dotted prefix of typ.
func (k *Kernel) Mint(ctx context.Context, callerID, authorityID int64, typ string, params map[string]any) (int64, error) {
	authority, err := k.repo.GetCapability(ctx, authorityID)
	if err != nil {
		return 0, err
	}
	if authority == nil || authority.OwnerID != callerID || authority.Type != TypeSysMint {
		return 0, ErrDenied
	}

	namespace, _ := authority.Params["namespace"].(string)
	if namespace != "*" && !isDottedPrefix(namespace, typ) {
		return 0, ErrDenied
	}

	return k.repo.CreateCapability(ctx, callerID, typ, params)
}

// Delegate produces a new capability of parent's type, owned by callerID,
// with params = parent.params merged with restrictions (restrictions win
// key by key). parentID must be owned by callerID.
//
// Per spec, this does not reject widening restrictions relative to parent;
// a delegated capability may be wider than its parent. Tracked as an
// open question, not fixed here.
func (k *Kernel) Delegate(ctx context.Context, callerID, parentID int64, restrictions map[string]any) (int64, error) {
	parent, err := k.repo.GetCapability(ctx, parentID)
	if err != nil {
		return 0, err
	}
	if parent == nil || parent.OwnerID != callerID {
		return 0, ErrDenied
	}

	merged := make(map[string]any, len(parent.Params)+len(restrictions))
	for key, v := range parent.Params {
		merged[key] = v
	}
	for key, v := range restrictions {
		merged[key] = v
	}

	return k.repo.CreateCapability(ctx, callerID, parent.Type, merged)
}

// Give reassigns capID's owner to targetID.
func (k *Kernel) Give(ctx context.Context, capID, targetID int64) error {
	return k.repo.UpdateCapabilityOwner(ctx, capID, targetID)
}

// Check resolves capID, verifies it is owned by callerID and is of
// expectedType, then applies match against its params unless the
// capability carries the params["*"] == true super-capability shortcut.
func (k *Kernel) Check(ctx context.Context, capID int64, callerID int64, expectedType string, match MatchFunc) (*entity.Capability, error) {
	cap, err := k.repo.GetCapability(ctx, capID)
	if err != nil {
		return nil, err
	}
	if cap == nil || cap.OwnerID != callerID || cap.Type != expectedType {
		return nil, ErrDenied
	}

	if wildcard, _ := cap.Params["*"].(bool); wildcard {
		return cap, nil
	}

	if match != nil && !match(cap.Params) {
		return nil, ErrDenied
	}

	return cap, nil
}

// isDottedPrefix reports whether namespace is a dotted-segment prefix of
// typ: either equal, or followed by a "." boundary in typ.
func isDottedPrefix(namespace, typ string) bool {
	if namespace == "" {
		return false
	}
	if namespace == typ {
		return true
	}

	return strings.HasPrefix(typ, namespace+".")
}

// MatchEntityControl implements entity.control's predicate: params.target_id
// must equal the id of the entity being acted on.
func MatchEntityControl(targetID int64) MatchFunc {
	return func(params map[string]any) bool {
		v, ok := params["target_id"]
		if !ok {
			return false
		}

		id, ok := asInt64(v)

		return ok && id == targetID
	}
}

// MatchPathPrefix implements fs.read/fs.write's predicate: params.path must
// be a prefix of the canonicalized target path.
func MatchPathPrefix(targetPath string) MatchFunc {
	return func(params map[string]any) bool {
		prefix, _ := params["path"].(string)
		canonical := filepath.Clean("/" + targetPath)

		return prefix != "" && strings.HasPrefix(canonical, prefix)
	}
}

// MatchHostSuffix implements net.http.read/net.http.write's predicate:
// params.domain must be a suffix of the target URL's host.
func MatchHostSuffix(host string) MatchFunc {
	return func(params map[string]any) bool {
		domain, _ := params["domain"].(string)

		return domain != "" && strings.HasSuffix(host, domain)
	}
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}

package engine

import (
	"strconv"
	"strings"

	"github.com/JonMunkholm/rosterimport/internal/core"
)

// TokenPrefix marks a forward-reference token in an id cell.
const TokenPrefix = "#"

type refKind int

const (
	refNone refKind = iota
	refID
	refToken
)

// Ref is a parsed id cell: nothing, a concrete id, or a pending token.
type Ref struct {
	kind  refKind
	id    int64
	token string
}

// RefID returns a reference to a concrete id.
func RefID(id int64) Ref { return Ref{kind: refID, id: id} }

// RefToken returns a pending forward reference.
func RefToken(token string) Ref { return Ref{kind: refToken, token: token} }

// IsNone reports whether the cell was blank.
func (r Ref) IsNone() bool { return r.kind == refNone }

// ID returns the concrete id, if r is one.
func (r Ref) ID() (int64, bool) { return r.id, r.kind == refID }

// Token returns the token, if r is one.
func (r Ref) Token() (string, bool) { return r.token, r.kind == refToken }

func (r Ref) String() string {
	switch r.kind {
	case refID:
		return strconv.FormatInt(r.id, 10)
	case refToken:
		return r.token
	default:
		return ""
	}
}

// ParseRef parses an id cell. Blank is none, a leading "#" is a token, and
// anything else must be a positive integer.
func ParseRef(field, s string) (Ref, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Ref{}, nil
	}
	if strings.HasPrefix(s, TokenPrefix) {
		if len(s) == len(TokenPrefix) {
			return Ref{}, &core.FieldError{Field: field, Value: s, Message: "token has no name"}
		}
		return RefToken(s), nil
	}
	s = strings.TrimSuffix(s, ".0")
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return Ref{}, &core.FieldError{Field: field, Value: s, Message: "must be a positive id or a " + TokenPrefix + "token"}
	}
	return RefID(id), nil
}

// Resolver maps the tokens and ids of one entity kind to concrete ids for the
// duration of a run. Known ids are the partition's existing rows plus rows
// created in the run.
type Resolver struct {
	entity string
	tokens map[string]int64
	known  map[int64]bool
}

// NewResolver returns a resolver seeded with the partition's existing ids.
func NewResolver(entity string, existing []int64) *Resolver {
	r := &Resolver{
		entity: entity,
		tokens: make(map[string]int64),
		known:  make(map[int64]bool, len(existing)),
	}
	for _, id := range existing {
		r.known[id] = true
	}
	return r
}

// Register binds token to id. A token can be bound only once per run.
func (r *Resolver) Register(token string, id int64) error {
	if prev, ok := r.tokens[token]; ok {
		return &core.ReferenceError{
			Entity: r.entity + " token",
			Value:  token,
			Reason: "is already bound to id " + strconv.FormatInt(prev, 10),
		}
	}
	r.tokens[token] = id
	r.known[id] = true
	return nil
}

// Defined reports whether token has been registered.
func (r *Resolver) Defined(token string) bool {
	_, ok := r.tokens[token]
	return ok
}

// Add records an id created without a token.
func (r *Resolver) Add(id int64) {
	r.known[id] = true
}

// Known reports whether id belongs to the partition.
func (r *Resolver) Known(id int64) bool {
	return r.known[id]
}

// Resolve returns the concrete id of ref.
func (r *Resolver) Resolve(ref Ref) (int64, error) {
	switch ref.kind {
	case refID:
		if !r.known[ref.id] {
			return 0, &core.ReferenceError{Entity: r.entity, Value: ref.String(), Reason: "does not exist in this partition"}
		}
		return ref.id, nil
	case refToken:
		id, ok := r.tokens[ref.token]
		if !ok {
			return 0, &core.ReferenceError{Entity: r.entity + " token", Value: ref.token, Reason: "was never defined earlier in this run"}
		}
		return id, nil
	default:
		return 0, &core.ReferenceError{Entity: r.entity, Value: "", Reason: "is required"}
	}
}

// ResolveList parses and resolves a "|"-separated list, keeping its order.
func (r *Resolver) ResolveList(field, cell string) ([]int64, error) {
	items := core.SplitList(cell)
	if len(items) == 0 {
		return nil, nil
	}
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		ref, err := ParseRef(field, item)
		if err != nil {
			return nil, err
		}
		id, err := r.Resolve(ref)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

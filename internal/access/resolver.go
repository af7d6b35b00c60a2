package access

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
)

// Kind tags the resource a reference points at.
type Kind string

const (
	// KindPost is a blog post.
	KindPost Kind = "post"
	// KindNews is a news item; it is owned and guarded exactly like a post.
	KindNews Kind = "news"
	// KindComment is a comment attached to a post or news item.
	KindComment Kind = "comment"
	// KindUser is a user account.
	KindUser Kind = "user"
)

// IsContent reports whether k is one of the content resource kinds.
func (k Kind) IsContent() bool {
	return k == KindPost || k == KindNews
}

// ResourceRef identifies the target of an access check.
type ResourceRef struct {
	Kind Kind
	ID   string
}

// Ref builds a ResourceRef.
func Ref(kind Kind, id string) ResourceRef {
	return ResourceRef{Kind: kind, ID: strings.TrimSpace(id)}
}

// Ownership is the minimal projection needed to evaluate ownership.
type Ownership struct {
	Kind     Kind
	ID       uuid.UUID
	AuthorID string
	// Parent fields are only populated for comments.
	ParentKind     Kind
	ParentID       uuid.UUID
	ParentAuthorID string
}

// Owner returns the principal that holds ownership authority over the
// resource. Authority over a comment belongs to the owner of its parent post,
// not to the comment's own author.
func (o Ownership) Owner() string {
	if o.Kind == KindComment {
		return o.ParentAuthorID
	}
	return o.AuthorID
}

// ContentStore is the read side of the persistent store used for ownership
// lookups. Implementations return ErrResourceNotFound for missing records.
type ContentStore interface {
	FindOwnership(ctx context.Context, kind Kind, id uuid.UUID) (Ownership, error)
}

// Resolver fetches ownership projections. It is stateless and safe for
// concurrent use.
type Resolver struct {
	store ContentStore
}

// NewResolver constructs a Resolver over store.
func NewResolver(store ContentStore) *Resolver {
	return &Resolver{store: store}
}

// ParseID validates a resource id without touching the store.
func ParseID(raw string) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

// Resolve returns the ownership projection for ref. A non-nil error always
// wraps ErrStoreUnavailable; otherwise a FailureNone kind means the projection
// is valid.
func (r *Resolver) Resolve(ctx context.Context, ref ResourceRef) (Ownership, FailureKind, error) {
	if !ref.Kind.IsContent() && ref.Kind != KindComment {
		return Ownership{}, InvalidReference, nil
	}
	id, ok := ParseID(ref.ID)
	if !ok {
		return Ownership{}, InvalidReference, nil
	}

	own, kind, err := r.find(ctx, ref.Kind, id)
	if err != nil || kind != FailureNone {
		return Ownership{}, kind, err
	}
	if ref.Kind != KindComment {
		return own, FailureNone, nil
	}

	parentKind := own.ParentKind
	if parentKind == "" {
		parentKind = KindPost
	}
	parent, kind, err := r.find(ctx, parentKind, own.ParentID)
	if err != nil || kind != FailureNone {
		return Ownership{}, kind, err
	}
	own.ParentKind = parentKind
	own.ParentAuthorID = parent.AuthorID
	return own, FailureNone, nil
}

func (r *Resolver) find(ctx context.Context, kind Kind, id uuid.UUID) (Ownership, FailureKind, error) {
	own, err := r.store.FindOwnership(ctx, kind, id)
	if err != nil {
		if errors.Is(err, ErrResourceNotFound) {
			return Ownership{}, NotFound, nil
		}
		return Ownership{}, FailureNone, &StoreError{Kind: kind, ID: id.String(), Err: err}
	}
	own.Kind = kind
	own.ID = id
	return own, FailureNone, nil
}

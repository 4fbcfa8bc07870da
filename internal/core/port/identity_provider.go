package port

import (
	"context"

	"github.com/docplatform/authz-service/internal/core/domain"
)

// IdentityProvider resolves a caller credential into a subject descriptor.
// Implementations signal usecase.ErrUnauthenticated for anything that is not
// a positively verified subject: a failed remote call, a non-2xx introspection
// response, or an invalid token must all resolve to a deny, never to a guest
// or default-allow subject.
type IdentityProvider interface {
	ResolveSubject(ctx context.Context, credential string) (*domain.Subject, error)
}

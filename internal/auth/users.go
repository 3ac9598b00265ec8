package auth

import (
	"context"
	"net/url"
)

// userSlot tracks a user provisioned in the engine.
type userSlot struct {
	contextID string
	userID    string
	created   bool
}

// provision creates, configures and enables a user. The slot is marked
// acquired as soon as the user exists so a failure in a later step is
// still cleaned up.
func (u *userSlot) provision(ctx context.Context, engine Engine, t Type, contextID, name string, creds url.Values) error {
	id, err := engine.NewUser(ctx, contextID, name)
	if err != nil {
		return authErr(t, "create user", err)
	}
	u.contextID, u.userID, u.created = contextID, id, true

	if err := engine.SetAuthenticationCredentials(ctx, contextID, id, creds); err != nil {
		return authErr(t, "set user credentials", err)
	}
	if err := engine.SetUserEnabled(ctx, contextID, id, true); err != nil {
		return authErr(t, "enable user", err)
	}
	return nil
}

// release removes the user if one was created. The slot is cleared first
// so a second call never reaches the engine.
func (u *userSlot) release(ctx context.Context, engine Engine) error {
	if !u.created {
		return nil
	}
	u.created = false
	return engine.RemoveUser(ctx, u.contextID, u.userID)
}

func credentials(username, password string) url.Values {
	return url.Values{"username": {username}, "password": {password}}
}

package providers

import (
	"github.com/samber/do/v2"

	"github.com/tombotower/tower-server/internal/auth"
	"github.com/tombotower/tower-server/internal/config"
	"github.com/tombotower/tower-server/internal/logger"
	"github.com/tombotower/tower-server/internal/session"
)

// ProvideBackend provides the credential verification backend.
func ProvideBackend(i do.Injector) (*auth.Backend, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return auth.NewBackend(storeHandle.Store, log.Logger), nil
}

// ProvideCookieCodec provides the session cookie codec, loading or
// generating the sealing key next to the database.
func ProvideCookieCodec(i do.Injector) (*auth.CookieCodec, error) {
	cfg := do.MustInvoke[*config.Config](i)

	key, err := auth.LoadOrGenerateKey(cfg.DataDir())
	if err != nil {
		return nil, err
	}

	return auth.NewCookieCodec(key, session.Lifetime)
}

// ProvideSessionManager provides the session manager.
func ProvideSessionManager(i do.Injector) (*session.Manager, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	backend := do.MustInvoke[*auth.Backend](i)
	codec := do.MustInvoke[*auth.CookieCodec](i)
	log := do.MustInvoke[*logger.Logger](i)

	return session.NewManager(storeHandle.Store, backend, codec, log.Logger, cfg.IsProduction()), nil
}

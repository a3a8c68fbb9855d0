package keycloak

import (
	"errors"

	"github.com/redis/go-redis/v9"
	"github.com/tullisdebbi6/keycloak/action"
	"github.com/tullisdebbi6/keycloak/credential"
	"github.com/tullisdebbi6/keycloak/internal/events"
	"github.com/tullisdebbi6/keycloak/internal/flows"
	"github.com/tullisdebbi6/keycloak/provider"
	"github.com/tullisdebbi6/keycloak/session"
	"github.com/tullisdebbi6/keycloak/token"
)

// Builder assembles an [Engine]. Providers are registered here, frozen at
// Build, and never change afterwards.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	eventSink EventSink
	policy    PolicySource
	mandated  MandatedActionSource

	actionFactories map[string]provider.Factory[action.Provider]
	signerFactories map[string]provider.Factory[credential.Signer]

	built bool
}

// New returns a builder preloaded with the default configuration.
func New() *Builder {
	return &Builder{
		config:          defaultConfig(),
		actionFactories: make(map[string]provider.Factory[action.Provider]),
		signerFactories: make(map[string]provider.Factory[credential.Signer]),
	}
}

// WithConfig replaces the configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the Redis client backing the session store.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithEventSink sets the sink receiving engine events.
func (b *Builder) WithEventSink(sink EventSink) *Builder {
	b.eventSink = sink
	return b
}

// WithPolicySource sets the per-realm re-authentication policy source.
// Without one, the static policy from [Config.ReAuth] applies to all realms.
func (b *Builder) WithPolicySource(src PolicySource) *Builder {
	b.policy = src
	return b
}

// WithMandatedActionSource sets the source of user-mandated required-action
// types. Without one, no type is considered mandated.
func (b *Builder) WithMandatedActionSource(src MandatedActionSource) *Builder {
	b.mandated = src
	return b
}

// WithActionProvider registers a required-action provider factory under its
// type identifier. The factory runs exactly once, at Build.
func (b *Builder) WithActionProvider(typeID string, factory provider.Factory[action.Provider]) *Builder {
	b.actionFactories[typeID] = factory
	return b
}

// WithCredentialSigner registers a credential-signer factory under its
// format identifier, overriding a built-in signer of the same format.
func (b *Builder) WithCredentialSigner(format string, factory provider.Factory[credential.Signer]) *Builder {
	b.signerFactories[format] = factory
	return b
}

// Build validates the configuration, freezes the provider registries, and
// returns the engine. A builder can be used once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	tokens, err := token.NewManager(token.Config{Secret: cfg.Token.Secret})
	if err != nil {
		return nil, err
	}

	store := session.NewStore(b.redis, cfg.Session.RedisPrefix, cfg.Session.MaxLifespan)

	actions := provider.NewRegistry[action.Provider]()
	for typeID, factory := range b.actionFactories {
		if err := actions.Register(typeID, factory); err != nil {
			return nil, err
		}
	}
	if err := actions.Freeze(); err != nil {
		return nil, err
	}

	signers := provider.NewRegistry[credential.Signer]()
	if cfg.Credential.Enabled {
		if err := registerBuiltinSigners(signers, cfg.Credential, b.signerFactories); err != nil {
			return nil, err
		}
	}
	for format, factory := range b.signerFactories {
		if err := signers.Register(format, factory); err != nil {
			return nil, err
		}
	}
	if err := signers.Freeze(); err != nil {
		return nil, err
	}

	policy := b.policy
	if policy == nil {
		policy = StaticPolicySource{Policy: ReAuthPolicy{
			MaxAuthAge:    cfg.ReAuth.MaxAuthAge,
			HasMaxAuthAge: cfg.ReAuth.EnforceMaxAuthAge,
		}}
	}

	engine := &Engine{
		config:   cfg,
		store:    store,
		tokens:   tokens,
		actions:  actions,
		signers:  signers,
		policy:   policy,
		mandated: b.mandated,
		events: events.NewDispatcher(events.Config{
			Enabled:    cfg.Events.Enabled,
			BufferSize: cfg.Events.BufferSize,
			DropIfFull: cfg.Events.DropIfFull,
		}, b.eventSink),
	}

	engine.flows = flows.New(flows.Deps{
		Store:    store,
		Actions:  actions,
		Emit:     engine.emit,
		Mandated: engine.mandatedActions,
		Now:      engine.now,
	})

	b.built = true

	return engine, nil
}

func registerBuiltinSigners(
	registry *provider.Registry[credential.Signer],
	cfg CredentialConfig,
	overrides map[string]provider.Factory[credential.Signer],
) error {
	signing := credential.SigningConfig{
		Method: cfg.SigningMethod,
		Key:    cfg.SigningKey,
		KeyID:  cfg.KeyID,
	}

	builtins := map[string]provider.Factory[credential.Signer]{
		credential.FormatJWTVC: func() (credential.Signer, error) {
			return credential.NewJWTVC(signing)
		},
		credential.FormatSDJWT: func() (credential.Signer, error) {
			return credential.NewSDJWT(signing)
		},
		credential.FormatMDoc: func() (credential.Signer, error) {
			return credential.NewMDoc(signing, cfg.MDocDocType)
		},
	}

	for format, factory := range builtins {
		if _, overridden := overrides[format]; overridden {
			continue
		}
		if err := registry.Register(format, factory); err != nil {
			return err
		}
	}
	return nil
}

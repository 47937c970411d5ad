package overlay

// Selector scopes an overlay to the contexts it applies to. Every populated
// dimension must equal the context's value exactly; an empty dimension is a
// wildcard. A selector with no populated dimension would match everything and
// is rejected at registration to force explicit scoping.
type Selector struct {
	Capability   string `json:"capability,omitempty"`
	Workflow     string `json:"workflow,omitempty"`
	DataView     string `json:"dataView,omitempty"`
	Presentation string `json:"presentation,omitempty"`
	Feature      string `json:"feature,omitempty"`
	TenantID     string `json:"tenantId,omitempty"`
	UserID       string `json:"userId,omitempty"`
	Role         string `json:"role,omitempty"`
	Device       string `json:"device,omitempty"`
	Tier         string `json:"tier,omitempty"`
}

// Dimension pairs a selector dimension name with its constrained value.
type Dimension struct {
	Name  string
	Value string
}

// Dimensions returns the populated constraints in canonical dimension order.
func (s Selector) Dimensions() []Dimension {
	pairs := []Dimension{
		{"capability", s.Capability},
		{"workflow", s.Workflow},
		{"dataView", s.DataView},
		{"presentation", s.Presentation},
		{"feature", s.Feature},
		{"tenantId", s.TenantID},
		{"userId", s.UserID},
		{"role", s.Role},
		{"device", s.Device},
		{"tier", s.Tier},
	}
	out := make([]Dimension, 0, len(pairs))
	for _, pair := range pairs {
		if pair.Value != "" {
			out = append(out, pair)
		}
	}
	return out
}

// IsEmpty reports whether the selector constrains no dimension at all.
func (s Selector) IsEmpty() bool {
	return s == Selector{}
}

// Specificity counts the constrained dimensions. It is a pure function of the
// selector, independent of any context, so rankings computed from it are
// reusable across match calls.
func (s Selector) Specificity() int {
	return len(s.Dimensions())
}

// Matches reports whether every constrained dimension equals the context's
// value for that dimension. Unconstrained dimensions match anything,
// including an absent context value.
func (s Selector) Matches(ctx MatchContext) bool {
	for _, dim := range s.Dimensions() {
		if dim.Value != ctx.value(dim.Name) {
			return false
		}
	}
	return true
}

// MatchContext carries the render-time coordinates matching runs against.
// Every field is optional; an empty field means the dimension is
// unconstrained for this render.
type MatchContext struct {
	Capability   string `json:"capability,omitempty"`
	Workflow     string `json:"workflow,omitempty"`
	DataView     string `json:"dataView,omitempty"`
	Presentation string `json:"presentation,omitempty"`
	Feature      string `json:"feature,omitempty"`
	TenantID     string `json:"tenantId,omitempty"`
	UserID       string `json:"userId,omitempty"`
	Role         string `json:"role,omitempty"`
	Device       string `json:"device,omitempty"`
	Tier         string `json:"tier,omitempty"`
}

func (c MatchContext) value(name string) string {
	switch name {
	case "capability":
		return c.Capability
	case "workflow":
		return c.Workflow
	case "dataView":
		return c.DataView
	case "presentation":
		return c.Presentation
	case "feature":
		return c.Feature
	case "tenantId":
		return c.TenantID
	case "userId":
		return c.UserID
	case "role":
		return c.Role
	case "device":
		return c.Device
	case "tier":
		return c.Tier
	default:
		return ""
	}
}

func (c MatchContext) binding() map[string]any {
	out := map[string]any{}
	for _, name := range []string{
		"capability", "workflow", "dataView", "presentation", "feature",
		"tenantId", "userId", "role", "device", "tier",
	} {
		if value := c.value(name); value != "" {
			out[name] = value
		}
	}
	return out
}

// Algorithm identifies the asymmetric scheme used for an overlay signature.
type Algorithm string

const (
	// AlgorithmEd25519 signs the canonical payload with Ed25519.
	AlgorithmEd25519 Algorithm = "ed25519"
	// AlgorithmRSAPSS signs a SHA-256 digest of the canonical payload with
	// RSA-PSS.
	AlgorithmRSAPSS Algorithm = "rsa-pss"
)

// Signature is the tamper-evidence envelope attached to a signed overlay.
type Signature struct {
	Alg         Algorithm `json:"alg"`
	PublicKeyID string    `json:"publicKeyId"`
	Value       string    `json:"value"`
}

// OverlaySpec is one signed, selector-scoped set of modifications. Specs are
// immutable once signed; updates are new versions, never in-place edits.
type OverlaySpec struct {
	OverlayID     string         `json:"overlayId"`
	Version       string         `json:"version"`
	AppliesTo     Selector       `json:"appliesTo"`
	Modifications Modifications  `json:"modifications"`
	Priority      int            `json:"priority,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	Signature     *Signature     `json:"signature,omitempty"`
}

// Key returns the registry key for the spec. (OverlayID, Version) pairs are
// unique within one registry; the same OverlayID may exist at many versions.
func (s OverlaySpec) Key() string {
	return s.OverlayID + "@" + s.Version
}

// Clone returns a deep copy so registered specs stay detached from caller
// mutations.
func (s OverlaySpec) Clone() OverlaySpec {
	out := s
	out.Modifications = append(Modifications(nil), s.Modifications...)
	out.Metadata = copyMetadata(s.Metadata)
	if s.Signature != nil {
		sig := *s.Signature
		out.Signature = &sig
	}
	return out
}

func copyMetadata(origin map[string]any) map[string]any {
	if len(origin) == 0 {
		return nil
	}
	out := make(map[string]any, len(origin))
	for key, value := range origin {
		out[key] = value
	}
	return out
}

// Option configures a Registry instance.
type Option func(*registryConfig)

type registryConfig struct {
	allowUnsigned  bool
	resolver       KeyResolver
	guardExpr      string
	guardEvaluator GuardEvaluator
	programCache   ProgramCache
	logger         EngineLogger
	auditHooks     AuditHooks
}

func applyOptions(opts []Option) registryConfig {
	cfg := registryConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// WithAllowUnsigned disables signature verification during Register. Intended
// for tests and development registries only; production registries should
// supply a KeyResolver instead.
func WithAllowUnsigned() Option {
	return func(cfg *registryConfig) {
		cfg.allowUnsigned = true
	}
}

// WithKeyResolver supplies the public-key lookup used to verify signatures at
// registration time. Key storage itself (Vault, KMS, files) stays behind the
// resolver.
func WithKeyResolver(resolver KeyResolver) Option {
	return func(cfg *registryConfig) {
		cfg.resolver = resolver
	}
}

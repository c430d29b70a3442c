package agent

import (
	"strings"

	"github.com/BaSui01/pandemonium/types"
	"go.uber.org/zap"
)

// DefaultRosterSize 是未指定发言者时随机组合的人数。
const DefaultRosterSize = 5

// maxComposeAttempts 限制随机组合时为避免重名而重抽的次数。
const maxComposeAttempts = 64

// Spec 描述一个组合发言者；空字段表示随机。
type Spec struct {
	Temperament string `yaml:"temperament" json:"temperament"`
	Expertise   string `yaml:"expertise" json:"expertise"`
}

// ParseSpec 解析 "temperament:expertise" 形式；任一半可为空。
func ParseSpec(s string) (Spec, error) {
	s = strings.TrimSpace(s)
	temperament, expertise, found := strings.Cut(s, ":")
	if !found && s == "" {
		return Spec{}, types.NewError(types.ErrConfiguration, "empty participant spec")
	}
	if strings.Contains(expertise, ":") {
		return Spec{}, types.Errorf(types.ErrConfiguration, "participant spec %q has too many ':'", s)
	}
	return Spec{
		Temperament: strings.TrimSpace(temperament),
		Expertise:   strings.TrimSpace(expertise),
	}, nil
}

func (s Spec) String() string {
	return s.Temperament + ":" + s.Expertise
}

func (s Spec) random() bool {
	return s.Temperament == "" || s.Expertise == ""
}

// NewComposed creates a participant whose identity and persona are composed
// from catalog. Empty halves of spec are drawn from rng.
func NewComposed(catalog *Catalog, spec Spec, rng Picker, responder Responder, logger *zap.Logger) (*Participant, error) {
	name, persona, err := catalog.Compose(spec.Temperament, spec.Expertise, rng)
	if err != nil {
		return nil, err
	}
	return newParticipant(name, persona, KindParticipant, responder, logger), nil
}

// BuildRoster 按 specs 创建发言者；specs 为空时随机组合 DefaultRosterSize 个。
// 显式指定的重名是配置错误；随机组合会重抽以避免重名。
func BuildRoster(catalog *Catalog, specs []Spec, rng Picker, responder Responder, logger *zap.Logger) ([]*Participant, error) {
	if catalog == nil {
		return nil, types.NewError(types.ErrConfiguration, "persona catalog is required")
	}
	if len(specs) == 0 {
		specs = make([]Spec, DefaultRosterSize)
	}

	taken := make(map[string]struct{}, len(specs))
	roster := make([]*Participant, 0, len(specs))
	for _, spec := range specs {
		var (
			p   *Participant
			err error
		)
		for attempt := 0; attempt < maxComposeAttempts; attempt++ {
			p, err = NewComposed(catalog, spec, rng, responder, logger)
			if err != nil {
				return nil, err
			}
			if _, dup := taken[p.Name()]; !dup || !spec.random() {
				break
			}
		}
		if _, dup := taken[p.Name()]; dup {
			if spec.random() {
				return nil, types.Errorf(types.ErrConfiguration,
					"persona catalog too small to compose a unique participant for %q", spec.String())
			}
			return nil, types.Errorf(types.ErrDuplicateIdentity, "participant %s specified more than once", p.Name())
		}
		taken[p.Name()] = struct{}{}
		roster = append(roster, p)
	}
	return roster, nil
}

// EnsureUniqueIdentities 校验所有身份互不相同。
func EnsureUniqueIdentities(names ...string) error {
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		if strings.TrimSpace(n) == "" {
			return types.NewError(types.ErrConfiguration, "identity must not be empty")
		}
		if _, ok := seen[n]; ok {
			return types.Errorf(types.ErrDuplicateIdentity, "identity %q is used more than once", n)
		}
		seen[n] = struct{}{}
	}
	return nil
}

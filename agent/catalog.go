package agent

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/BaSui01/pandemonium/types"
	"gopkg.in/yaml.v3"
)

//go:embed personas.yaml
var defaultCatalogYAML []byte

// Trait 是一个气质或专业领域条目。
type Trait struct {
	// Name 仅对气质有意义，作为组合身份的前半部分。
	Name    string `yaml:"name" json:"name"`
	Persona string `yaml:"persona" json:"persona"`
}

// Catalog 是可组合的人设目录：气质 × 专业领域。
type Catalog struct {
	Temperaments map[string]Trait `yaml:"temperaments" json:"temperaments"`
	Expertise    map[string]Trait `yaml:"expertise" json:"expertise"`
}

// UnmarshalYAML 兼容旧文件中拼写为 "temperments" 的键。
func (c *Catalog) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		Temperaments map[string]Trait `yaml:"temperaments"`
		Legacy       map[string]Trait `yaml:"temperments"`
		Expertise    map[string]Trait `yaml:"expertise"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	c.Temperaments = raw.Temperaments
	if len(c.Temperaments) == 0 {
		c.Temperaments = raw.Legacy
	}
	c.Expertise = raw.Expertise
	return nil
}

// ParseCatalog 解析 YAML 或 JSON 格式的目录。
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, types.NewError(types.ErrConfiguration, "invalid persona catalog").WithCause(err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadCatalog 从文件加载目录。
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, types.Errorf(types.ErrConfiguration, "persona catalog not found at %s", path).WithCause(err)
	}
	return ParseCatalog(data)
}

// DefaultCatalog 返回内置目录。
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(defaultCatalogYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded persona catalog is invalid: %v", err))
	}
	return c
}

func (c *Catalog) Validate() error {
	if len(c.Temperaments) == 0 {
		return types.NewError(types.ErrConfiguration, "persona catalog has no temperaments")
	}
	if len(c.Expertise) == 0 {
		return types.NewError(types.ErrConfiguration, "persona catalog has no expertise")
	}
	for key, t := range c.Temperaments {
		if strings.TrimSpace(t.Name) == "" {
			return types.Errorf(types.ErrConfiguration, "temperament %q has no name", key)
		}
	}
	return nil
}

// TemperamentKeys 返回排序后的气质键。
func (c *Catalog) TemperamentKeys() []string { return sortedKeys(c.Temperaments) }

// ExpertiseKeys 返回排序后的专业领域键。
func (c *Catalog) ExpertiseKeys() []string { return sortedKeys(c.Expertise) }

// Picker 提供均匀随机下标，*math/rand/v2.Rand 满足该接口。
type Picker interface {
	IntN(n int) int
}

// Compose 组合出身份与人设。空键由 rng 随机选择；未知键返回配置错误并列出可用键。
// 需要随机选择却没有 rng 时同样返回配置错误。
func (c *Catalog) Compose(temperament, expertise string, rng Picker) (name, persona string, err error) {
	if temperament == "" {
		if temperament, err = pick("temperament", c.TemperamentKeys(), rng); err != nil {
			return "", "", err
		}
	}
	if expertise == "" {
		if expertise, err = pick("expertise", c.ExpertiseKeys(), rng); err != nil {
			return "", "", err
		}
	}

	t, ok := c.Temperaments[temperament]
	if !ok {
		return "", "", types.Errorf(types.ErrConfiguration,
			"temperament key %q not found, available: %s", temperament, strings.Join(c.TemperamentKeys(), ", "))
	}
	e, ok := c.Expertise[expertise]
	if !ok {
		return "", "", types.Errorf(types.ErrConfiguration,
			"expertise key %q not found, available: %s", expertise, strings.Join(c.ExpertiseKeys(), ", "))
	}

	return t.Name + "_" + expertise, strings.TrimSpace(t.Persona) + "\n\n" + strings.TrimSpace(e.Persona), nil
}

func pick(kind string, keys []string, rng Picker) (string, error) {
	switch {
	case rng == nil:
		return "", types.Errorf(types.ErrConfiguration, "%s key is empty and no random source was given", kind)
	case len(keys) == 0:
		return "", types.Errorf(types.ErrConfiguration, "catalog has no %s entries", kind)
	}
	return keys[rng.IntN(len(keys))], nil
}

func sortedKeys(m map[string]Trait) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

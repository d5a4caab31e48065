package registry

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Manifest seeds the registry (and the node's factory origins and admin
// roles) from a YAML file at boot.
type Manifest struct {
	Admins        []string       `yaml:"admins"`
	Origins       []string       `yaml:"origins"`
	ActivityKinds []ManifestKind `yaml:"activity_kinds"`
	RewardKinds   []ManifestKind `yaml:"reward_kinds"`
	Pairings      []ManifestPair `yaml:"pairings"`
}

// ManifestKind is one kind registration.
type ManifestKind struct {
	Name     string `yaml:"name"`
	Template string `yaml:"template"`
}

// ManifestPair is one permitted pairing.
type ManifestPair struct {
	Activity string `yaml:"activity"`
	Reward   string `yaml:"reward"`
}

// LoadManifest parses the YAML manifest at path.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("registry: read manifest: %w", err)
	}
	manifest := new(Manifest)
	if err := yaml.Unmarshal(data, manifest); err != nil {
		return nil, fmt.Errorf("registry: parse manifest: %w", err)
	}
	return manifest, nil
}

// Apply registers the manifest's kinds and pairings on behalf of caller,
// which must hold the registry admin role. Admins and origins are the node's
// concern and are not touched here.
func (r *Registry) Apply(caller [20]byte, manifest *Manifest) error {
	if manifest == nil {
		return nil
	}
	for _, kind := range manifest.ActivityKinds {
		if err := r.RegisterActivityKind(caller, kind.Name, kind.Template); err != nil {
			return fmt.Errorf("registry: activity kind %q: %w", kind.Name, err)
		}
	}
	for _, kind := range manifest.RewardKinds {
		if err := r.RegisterRewardKind(caller, kind.Name, kind.Template); err != nil {
			return fmt.Errorf("registry: reward kind %q: %w", kind.Name, err)
		}
	}
	for _, pair := range manifest.Pairings {
		if err := r.SetPairingPermitted(caller, pair.Activity, pair.Reward, true); err != nil {
			return fmt.Errorf("registry: pairing %s|%s: %w", pair.Activity, pair.Reward, err)
		}
	}
	return nil
}

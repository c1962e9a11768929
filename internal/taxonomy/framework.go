package taxonomy

import (
	"io"
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// frameworkFile is the YAML shape of a framework definition.
type frameworkFile struct {
	Pillars []pillarDef `yaml:"pillars"`
}

type pillarDef struct {
	ID     string     `yaml:"id"`
	Label  string     `yaml:"label"`
	Themes []themeDef `yaml:"themes"`
}

type themeDef struct {
	ID        string        `yaml:"id"`
	Label     string        `yaml:"label"`
	Subthemes []subthemeDef `yaml:"subthemes"`
	Datasets  []datasetRef  `yaml:"datasets"`
}

type subthemeDef struct {
	ID       string       `yaml:"id"`
	Label    string       `yaml:"label"`
	Datasets []datasetRef `yaml:"datasets"`
}

type datasetRef struct {
	ID    string `yaml:"id"`
	Label string `yaml:"label"`
}

// LoadFramework reads a framework definition from YAML and builds the node
// arena.
func LoadFramework(r io.Reader) (*Arena, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "taxonomy: read framework")
	}

	var def frameworkFile
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, eris.Wrap(err, "taxonomy: parse framework yaml")
	}
	if len(def.Pillars) == 0 {
		return nil, eris.New("taxonomy: framework defines no pillars")
	}

	arena := NewArena()
	for _, p := range def.Pillars {
		if err := arena.Add(Node{ID: p.ID, Label: p.Label, Kind: KindPillar}); err != nil {
			return nil, err
		}
		for _, t := range p.Themes {
			if err := arena.Add(Node{ID: t.ID, Label: t.Label, Kind: KindTheme, ParentID: p.ID}); err != nil {
				return nil, err
			}
			for _, st := range t.Subthemes {
				if err := arena.Add(Node{ID: st.ID, Label: st.Label, Kind: KindSubtheme, ParentID: t.ID}); err != nil {
					return nil, err
				}
				for _, d := range st.Datasets {
					if err := arena.Add(Node{ID: d.ID, Label: d.Label, Kind: KindDataset, ParentID: st.ID}); err != nil {
						return nil, err
					}
				}
			}
			for _, d := range t.Datasets {
				if err := arena.Add(Node{ID: d.ID, Label: d.Label, Kind: KindDataset, ParentID: t.ID}); err != nil {
					return nil, err
				}
			}
		}
	}

	return arena, nil
}

// LoadFrameworkFile reads a framework definition from a file path.
func LoadFrameworkFile(path string) (*Arena, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "taxonomy: open framework file %s", path)
	}
	defer f.Close() //nolint:errcheck

	return LoadFramework(f)
}

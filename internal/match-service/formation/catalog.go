package formation

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/radieske/grassroots-match-tracker/internal/match-service/model"
)

//go:embed formations.yaml
var defaultTables []byte

// Position é uma posição no campo normalizado (0-100 nos dois eixos)
type Position struct {
	ID    string  `yaml:"id" json:"id"`
	X     float64 `yaml:"x" json:"x"`
	Y     float64 `yaml:"y" json:"y"`
	Label string  `yaml:"label" json:"label"`
}

type Formation struct {
	Name      string     `yaml:"name" json:"name"`
	Positions []Position `yaml:"positions" json:"positions"`
}

// Has indica se a formação possui a posição
func (f Formation) Has(positionID string) bool {
	for _, p := range f.Positions {
		if p.ID == positionID {
			return true
		}
	}
	return false
}

type Format struct {
	Name           string      `yaml:"name" json:"name"`
	Players        int         `yaml:"players" json:"players"`
	MaxSubstitutes int         `yaml:"max_substitutes" json:"max_substitutes"`
	Formations     []Formation `yaml:"formations" json:"formations"`
}

type AgeGroup struct {
	Name       string   `yaml:"name" json:"name"`
	Format     string   `yaml:"format" json:"format"`
	Formations []string `yaml:"formations" json:"formations"`
}

// FormationSet é o resultado de GetFormations para uma faixa etária
type FormationSet struct {
	AgeGroup       string      `json:"age_group"`
	Format         string      `json:"format"`
	Players        int         `json:"players"`
	MaxSubstitutes int         `json:"max_substitutes"`
	Formations     []Formation `json:"formations"`
}

type tables struct {
	Formats   []Format   `yaml:"formats"`
	AgeGroups []AgeGroup `yaml:"age_groups"`
}

// Catalog é somente leitura depois de carregado; seguro para uso concorrente
type Catalog struct {
	formats   []Format
	ageGroups []AgeGroup

	formatIdx map[string]int
	ageIdx    map[string]int
}

// Default carrega as tabelas embutidas no binário
func Default() (*Catalog, error) {
	return Parse(defaultTables)
}

// LoadFile carrega um catálogo alternativo (FORMATIONS_PATH)
func LoadFile(path string) (*Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read formations file: %w", err)
	}
	return Parse(b)
}

// Parse decodifica e valida as tabelas; um catálogo inválido é erro de startup
func Parse(data []byte) (*Catalog, error) {
	var t tables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse formations: %w", err)
	}

	c := &Catalog{
		formatIdx: make(map[string]int, len(t.Formats)),
		ageIdx:    make(map[string]int, len(t.AgeGroups)),
	}

	for _, f := range t.Formats {
		if err := validateFormat(&f); err != nil {
			return nil, err
		}
		if _, dup := c.formatIdx[f.Name]; dup {
			return nil, fmt.Errorf("format %s declared twice", f.Name)
		}
		c.formatIdx[f.Name] = len(c.formats)
		c.formats = append(c.formats, f)
	}

	for _, ag := range t.AgeGroups {
		if ag.Name == "" {
			return nil, fmt.Errorf("age group without name")
		}
		if _, dup := c.ageIdx[ag.Name]; dup {
			return nil, fmt.Errorf("age group %s declared twice", ag.Name)
		}
		f, ok := c.format(ag.Format)
		if !ok {
			return nil, fmt.Errorf("age group %s: unknown format %q", ag.Name, ag.Format)
		}
		if len(ag.Formations) == 0 {
			return nil, fmt.Errorf("age group %s: no formations", ag.Name)
		}
		for _, name := range ag.Formations {
			if _, ok := findFormation(f, name); !ok {
				return nil, fmt.Errorf("age group %s: formation %q not in format %s", ag.Name, name, f.Name)
			}
		}
		c.ageIdx[ag.Name] = len(c.ageGroups)
		c.ageGroups = append(c.ageGroups, ag)
	}

	return c, nil
}

func validateFormat(f *Format) error {
	if f.Name == "" || f.Players <= 0 {
		return fmt.Errorf("format %q: name and players are required", f.Name)
	}
	if f.MaxSubstitutes < 0 {
		return fmt.Errorf("format %s: negative max_substitutes", f.Name)
	}
	seen := make(map[string]bool, len(f.Formations))
	for i := range f.Formations {
		fm := &f.Formations[i]
		if seen[fm.Name] {
			return fmt.Errorf("format %s: formation %s declared twice", f.Name, fm.Name)
		}
		seen[fm.Name] = true

		if len(fm.Positions) != f.Players {
			return fmt.Errorf("formation %s/%s: %d positions, want %d", f.Name, fm.Name, len(fm.Positions), f.Players)
		}
		ids := make(map[string]bool, len(fm.Positions))
		for j := range fm.Positions {
			p := &fm.Positions[j]
			if p.ID == "" || ids[p.ID] {
				return fmt.Errorf("formation %s/%s: duplicate or empty position id %q", f.Name, fm.Name, p.ID)
			}
			ids[p.ID] = true
			if p.X < 0 || p.X > 100 || p.Y < 0 || p.Y > 100 {
				return fmt.Errorf("formation %s/%s: position %s out of pitch", f.Name, fm.Name, p.ID)
			}
			if p.Label == "" {
				p.Label = strings.TrimRight(p.ID, "0123456789")
			}
		}
	}
	return nil
}

func findFormation(f Format, name string) (Formation, bool) {
	for _, fm := range f.Formations {
		if fm.Name == name {
			return fm.clone(), true
		}
	}
	return Formation{}, false
}

// clone copia as posições; o catálogo nunca entrega slices internos
func (f Formation) clone() Formation {
	f.Positions = append([]Position(nil), f.Positions...)
	return f
}

func (f Format) clone() Format {
	fms := make([]Formation, len(f.Formations))
	for i, fm := range f.Formations {
		fms[i] = fm.clone()
	}
	f.Formations = fms
	return f
}

func (c *Catalog) format(name string) (Format, bool) {
	i, ok := c.formatIdx[name]
	if !ok {
		return Format{}, false
	}
	return c.formats[i], true
}

// GetFormations devolve o formato da faixa etária e o subconjunto de formações permitido
func (c *Catalog) GetFormations(ageGroup string) (FormationSet, error) {
	i, ok := c.ageIdx[ageGroup]
	if !ok {
		return FormationSet{}, model.NotFound("age group", ageGroup)
	}
	ag := c.ageGroups[i]
	f, _ := c.format(ag.Format)

	set := FormationSet{
		AgeGroup:       ag.Name,
		Format:         f.Name,
		Players:        f.Players,
		MaxSubstitutes: f.MaxSubstitutes,
		Formations:     make([]Formation, 0, len(ag.Formations)),
	}
	for _, name := range ag.Formations {
		fm, _ := findFormation(f, name)
		set.Formations = append(set.Formations, fm)
	}
	return set, nil
}

// Format devolve um formato (ex: "7v7")
func (c *Catalog) Format(name string) (Format, error) {
	f, ok := c.format(name)
	if !ok {
		return Format{}, model.NotFound("format", name)
	}
	return f.clone(), nil
}

// Formation busca uma formação pelo formato e nome
func (c *Catalog) Formation(format, name string) (Formation, error) {
	f, ok := c.format(format)
	if !ok {
		return Formation{}, model.NotFound("format", format)
	}
	fm, ok := findFormation(f, name)
	if !ok {
		return Formation{}, model.NotFound("formation", format+"/"+name)
	}
	return fm, nil
}

func (c *Catalog) HasAgeGroup(name string) bool {
	_, ok := c.ageIdx[name]
	return ok
}

func (c *Catalog) Formats() []Format {
	out := make([]Format, len(c.formats))
	for i, f := range c.formats {
		out[i] = f.clone()
	}
	return out
}

func (c *Catalog) AgeGroups() []AgeGroup {
	out := make([]AgeGroup, len(c.ageGroups))
	for i, ag := range c.ageGroups {
		ag.Formations = append([]string(nil), ag.Formations...)
		out[i] = ag
	}
	return out
}
